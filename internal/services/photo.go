package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hookupza/apiserver/internal/storage"
	"github.com/hookupza/apiserver/types"
)

// DefaultMaxPhotoBytes caps a single photo upload.
const DefaultMaxPhotoBytes = 5 << 20

// PhotoURLPrefix is where stored photos are served from.
const PhotoURLPrefix = "/uploads/"

var allowedPhotoExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// PhotoStorage is the subset of the object store used for photos.
type PhotoStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Photo is a stored upload.
type Photo struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// PhotoService validates and stores ad photos.
type PhotoService struct {
	storage  PhotoStorage
	maxBytes int64
	now      func() time.Time
}

func NewPhotoService(store PhotoStorage, maxBytes int64) *PhotoService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	return &PhotoService{
		storage:  store,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes returns the per-photo size limit.
func (s *PhotoService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload checks the extension, size and sniffed content type of a photo and
// stores it under a generated name prefixed with the owner's id.
func (s *PhotoService) Upload(ctx context.Context, ownerID int, filename string, r io.Reader) (Photo, error) {
	if strings.TrimSpace(filename) == "" {
		return Photo{}, ErrEmptyPhoto
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedPhotoExtensions[ext]; !ok {
		return Photo{}, ErrInvalidFileType
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Photo{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Photo{}, ErrPhotoTooLarge
	}
	if len(data) == 0 {
		return Photo{}, ErrEmptyPhoto
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return Photo{}, ErrInvalidFileType
	}

	name := fmt.Sprintf("%d_%s_%s%s", ownerID, s.now().UTC().Format("20060102150405"), uuid.NewString(), ext)
	if err := s.storage.Put(ctx, name, bytes.NewReader(data), int64(len(data)), detected.String()); err != nil {
		return Photo{}, err
	}

	return Photo{Filename: name, URL: PhotoURLPrefix + name}, nil
}

// Delete removes a photo. Users may delete their own uploads; admins any.
func (s *PhotoService) Delete(ctx context.Context, requester types.User, filename string) error {
	if !validPhotoName(filename) {
		return ErrInvalidFilename
	}
	if !requester.IsAdmin() && !strings.HasPrefix(filename, fmt.Sprintf("%d_", requester.ID)) {
		return ErrForbidden
	}

	if _, err := s.storage.Stat(ctx, filename); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrPhotoNotFound
		}
		return err
	}
	if err := s.storage.Delete(ctx, filename); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrPhotoNotFound
		}
		return err
	}
	return nil
}

// Open returns a reader for a stored photo and its metadata.
func (s *PhotoService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	if !validPhotoName(filename) {
		return nil, storage.ObjectInfo{}, ErrPhotoNotFound
	}
	info, err := s.storage.Stat(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrPhotoNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	rc, err := s.storage.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrPhotoNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}

func validPhotoName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return path.Base(name) == name
}
