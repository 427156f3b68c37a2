package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/db"
	"github.com/hookupza/apiserver/internal/handlers"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/metrics"
	"github.com/hookupza/apiserver/internal/mq"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/storage"
	"github.com/hookupza/apiserver/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	opsServer  *http.Server
	router     *chi.Mux
	db         *sqlx.DB
	events     *mq.MQ
	redis      *redis.Client
	logger     *slog.Logger
}

// New constructs a Server with its dependencies opened from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	logger = logging.Resolve(logger)
	if cfg.Session.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn, logger: logger}
	if err := s.build(ctx, cfg); err != nil {
		s.closeResources()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context, cfg config.Config) error {
	photoStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	events, err := mq.Open(ctx, cfg.Messaging)
	if err != nil {
		return fmt.Errorf("open messaging: %w", err)
	}
	s.events = events

	if cfg.Redis.URL != "" {
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		s.redis = client
	}

	m := metrics.New()
	userRepo := store.NewUserRepository(s.db)
	adRepo := store.NewAdRepository(s.db)

	adOpts := []services.AdOption{services.WithMetrics(m), services.WithLogger(s.logger)}
	if events != nil {
		adOpts = append(adOpts, services.WithEvents(events, cfg.Messaging.Topic))
	}

	c := components{
		users:    services.NewUserService(userRepo),
		ads:      services.NewAdService(adRepo, adOpts...),
		photos:   services.NewPhotoService(photoStore, cfg.Uploads.MaxPhotoBytes),
		sessions: handlers.NewSessionManager(cfg.Session),
		limiter:  handlers.NewRateLimiter(s.redis, cfg.Redis.LoginPerMinute, s.logger),
		metrics:  m,
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	s.router = newRouter(cfg, c, s.logger)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.OpsPort > 0 {
		s.opsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.OpsPort),
			Handler:           newOpsRouter(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return nil
}

type components struct {
	users    *services.UserService
	ads      *services.AdService
	photos   *services.PhotoService
	sessions *handlers.SessionManager
	limiter  *handlers.RateLimiter
	metrics  *metrics.Metrics
}

// newRouter builds the public API router. Metrics are not mounted here.
func newRouter(cfg config.Config, c components, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.AccessLog(logger, c.metrics),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadsRouter(r, c.photos, logger)
	})
	router.Route("/api", func(r chi.Router) {
		r.Use(handlers.LimitBody(cfg.Uploads.MaxRequestBytes))

		handlers.AuthRouter(r, c.users, c.sessions, c.limiter, logger)
		handlers.AdRouter(r, c.ads, c.users, c.sessions.RequireAuth, logger)
		handlers.PhotoRouter(r, c.photos, c.users, c.sessions.RequireAuth, logger)
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, c.users, c.ads, c.sessions, logger)
		})
	})
	return router
}

// newOpsRouter serves the operator-only endpoints on the ops listener.
func newOpsRouter(m *metrics.Metrics) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", m.Handler())
	return router
}

// OpenRedis connects to the Redis instance at cfg.URL.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down. The ops listener, when
// configured, runs alongside it.
func (s *Server) Start() error {
	if s.opsServer != nil {
		go func() {
			s.logger.Info("ops listening", "addr", s.opsServer.Addr)
			if err := s.opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("ops server stopped", "error", err)
			}
		}()
	}
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.opsServer != nil {
		if opsErr := s.opsServer.Shutdown(ctx); opsErr != nil && err == nil {
			err = opsErr
		}
	}
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn("close messaging", "error", err)
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
