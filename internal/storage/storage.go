package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hookupza/apiserver/config"
)

// ErrObjectNotFound is returned when a key does not exist in the backend.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored photo.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend and keeps every photo under a
// common key prefix.
type Storage struct {
	backend ObjectStorage
	prefix  string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, prefix string) *Storage {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Storage{backend: backend, prefix: prefix}
}

// Open selects and prepares the backend named in cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		prefix  string
		err     error
	)
	switch cfg.Backend {
	case "", "local":
		backend, err = NewLocalClient(cfg.Local)
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
		prefix = "photos"
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
		prefix = "photos"
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("prepare %s storage: %w", cfg.Backend, err)
	}
	return NewStorage(backend, prefix), nil
}

// Put uploads a photo.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, s.prefix+key, r, size, contentType)
}

// Get opens a reader for a photo.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, s.prefix+key)
}

// Stat reports the size and content type of a photo.
func (s *Storage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.backend.Stat(ctx, s.prefix+key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Key = key
	return info, nil
}

// Delete removes a photo.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.prefix+key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
