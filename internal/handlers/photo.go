package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
)

const (
	formFieldPhoto     = "photo"
	maxMultipartMemory = 8 << 20
)

// PhotoHandler uploads, deletes and serves ad photos.
type PhotoHandler struct {
	photoService *services.PhotoService
	userService  *services.UserService
	logger       *slog.Logger
}

func NewPhotoHandler(photoService *services.PhotoService, userService *services.UserService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		userService:  userService,
		logger:       logging.Resolve(logger),
	}
}

// PhotoRouter registers the authenticated photo endpoints.
func PhotoRouter(
	r chi.Router,
	photoService *services.PhotoService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewPhotoHandler(photoService, userService, logger)

	r.With(authMiddleware).Post("/upload_photo", handler.Upload)
	r.With(authMiddleware).Delete("/delete_photo", handler.Delete)
}

// UploadsRouter serves stored photos by name.
func UploadsRouter(r chi.Router, photoService *services.PhotoService, logger *slog.Logger) {
	handler := NewPhotoHandler(photoService, nil, logger)

	r.Get("/{filename}", handler.Serve)
}

// UploadResponse describes a stored photo.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, h.tooLargeMessage())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(formFieldPhoto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No photo provided")
		return
	}
	defer file.Close()

	photo, err := h.photoService.Upload(r.Context(), userID, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyPhoto):
			writeError(w, http.StatusBadRequest, "No file selected")
		case errors.Is(err, services.ErrInvalidFileType):
			writeError(w, http.StatusBadRequest, "Invalid file type")
		case errors.Is(err, services.ErrPhotoTooLarge):
			writeError(w, http.StatusBadRequest, h.tooLargeMessage())
		default:
			writeInternal(w, r, h.logger, "Upload failed", err)
		}
		return
	}

	h.logger.InfoContext(r.Context(), "photo uploaded", "user_id", userID, "filename", photo.Filename)
	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:  "Photo uploaded successfully",
		Filename: photo.Filename,
		URL:      photo.URL,
	})
}

// Delete removes a photo. Only its uploader or an admin may do so.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	var req DeletePhotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if _, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, "No filename provided")
		return
	}

	requester, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		writeInternal(w, r, h.logger, "failed to load user", err)
		return
	}

	if err := h.photoService.Delete(r.Context(), requester, req.Filename); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFilename):
			writeError(w, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Unauthorized")
		case errors.Is(err, services.ErrPhotoNotFound):
			writeError(w, http.StatusNotFound, "Photo not found")
		default:
			writeInternal(w, r, h.logger, "failed to delete photo", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Photo deleted successfully"})
}

// Serve streams a stored photo.
func (h *PhotoHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	rc, info, err := h.photoService.Open(r.Context(), filename)
	if err != nil {
		if errors.Is(err, services.ErrPhotoNotFound) {
			writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
		writeInternal(w, r, h.logger, "failed to read photo", err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "stream photo failed", "filename", filename, "error", err)
	}
}

func (h *PhotoHandler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Max %dMB", h.photoService.MaxBytes()>>20)
}
