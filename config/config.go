package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerPort int
	OpsPort    int
	LogLevel   string
	Database   DatabaseConfig
	Session    SessionConfig
	CORS       CORSConfig
	Uploads    UploadConfig
	Storage    StorageConfig
	Messaging  MessagingConfig
	Redis      RedisConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret       string
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

// UploadConfig bounds photo uploads.
type UploadConfig struct {
	MaxPhotoBytes   int64
	MaxRequestBytes int64
}

// StorageConfig selects the photo storage backend: local, minio or gcs.
type StorageConfig struct {
	Backend string
	Local   LocalConfig
	Minio   MinioConfig
	GCS     GCSConfig
}

type LocalConfig struct {
	Dir string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// MessagingConfig selects the lifecycle event backend: none, rabbitmq or pubsub.
type MessagingConfig struct {
	Backend  string
	Topic    string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL           string
	Queue         string
	PrefetchCount int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type RedisConfig struct {
	URL            string
	LoginPerMinute int
}

func LoadConfig() Config {
	env := getEnv("ENV", "dev")
	if env == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "hookupza"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "hookupza_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		Env:        env,
		ServerPort: getEnvInt("SERVER_PORT", 5000),
		OpsPort:    getEnvInt("OPS_PORT", 9090),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Database:   dbConfig,
		Session: SessionConfig{
			Secret:       strings.TrimSpace(getEnv("SESSION_SECRET", "")),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "hookupza_session"),
			TTL:          getEnvDuration("SESSION_TTL", 7*24*time.Hour),
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ORIGINS", []string{
				"http://127.0.0.1:5500",
				"http://localhost:5500",
				"http://127.0.0.1:5501",
				"http://localhost:5501",
			}),
		},
		Uploads: UploadConfig{
			MaxPhotoBytes:   int64(getEnvInt("MAX_PHOTO_BYTES", 5<<20)),
			MaxRequestBytes: int64(getEnvInt("MAX_REQUEST_BYTES", 10<<20)),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			Local: LocalConfig{
				Dir: getEnv("UPLOAD_DIR", "uploads"),
			},
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "hookupza-photos"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		Messaging: MessagingConfig{
			Backend: strings.ToLower(getEnv("MQ_BACKEND", "none")),
			Topic:   getEnv("MQ_AD_EVENTS_TOPIC", "hookupza.ad-events"),
			RabbitMQ: RabbitMQConfig{
				URL:           getEnv("RABBITMQ_URL", ""),
				Queue:         getEnv("RABBITMQ_QUEUE", ""),
				PrefetchCount: getEnvInt("RABBITMQ_PREFETCH", 10),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			LoginPerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		},
	}
}

// IsProduction reports whether the server runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
