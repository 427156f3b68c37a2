package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
)

// AdHandler provides HTTP handlers for posting and browsing ads.
type AdHandler struct {
	adService   *services.AdService
	userService *services.UserService
	logger      *slog.Logger
}

func NewAdHandler(adService *services.AdService, userService *services.UserService, logger *slog.Logger) *AdHandler {
	return &AdHandler{
		adService:   adService,
		userService: userService,
		logger:      logging.Resolve(logger),
	}
}

// AdRouter registers ad routes on the given router.
func AdRouter(
	r chi.Router,
	adService *services.AdService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewAdHandler(adService, userService, logger)

	r.Get("/public_ads", handler.ListPublic)
	r.Get("/get_ad/{adID}", handler.GetAd)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/post_ad", handler.PostAd)
		r.Get("/my_ads", handler.MyAds)
		r.Put("/edit_ad/{adID}", handler.EditAd)
		r.Delete("/delete_ad/{adID}", handler.DeleteAd)
	})
}

// PostAd creates an ad. Placement follows the poster's stored tier.
func (h *AdHandler) PostAd(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	var req PostAdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	ad := req.Ad()
	if msg, ok := validateRequest(PostAdRequest{
		Title:       ad.Title,
		Category:    ad.Category,
		Description: ad.Description,
		Contact:     ad.Contact,
		Photos:      req.Photos,
	}); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	poster, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		writeInternal(w, r, h.logger, "failed to load user", err)
		return
	}

	created, err := h.adService.Create(r.Context(), ad, poster)
	if err != nil {
		writeInternal(w, r, h.logger, "failed to create ad", err)
		return
	}

	writeJSON(w, http.StatusCreated, PostAdResponse{
		Message:       "Ad posted successfully",
		AdID:          created.ID,
		Status:        created.Status,
		IsPremium:     created.IsPremium,
		ExpiresInDays: int(created.ExpiresAt.Sub(created.CreatedAt).Hours() / 24),
	})
}

func (h *AdHandler) MyAds(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	ads, err := h.adService.ListByOwner(r.Context(), userID)
	if err != nil {
		writeInternal(w, r, h.logger, "failed to list ads", err)
		return
	}
	writeJSON(w, http.StatusOK, AdListResponse{Ads: ads})
}

func (h *AdHandler) GetAd(w http.ResponseWriter, r *http.Request) {
	id, err := parseAdID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ad, err := h.adService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ad not found")
			return
		}
		writeInternal(w, r, h.logger, "failed to fetch ad", err)
		return
	}
	writeJSON(w, http.StatusOK, AdResponse{Ad: ad})
}

// EditAd applies a partial update. Owners and admins only.
func (h *AdHandler) EditAd(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}
	id, err := parseAdID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req EditAdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req = req.Trimmed()
	if msg, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	editor, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		writeInternal(w, r, h.logger, "failed to load user", err)
		return
	}

	if _, err := h.adService.Update(r.Context(), id, editor, req.Patch()); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Ad not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Unauthorized")
		default:
			writeInternal(w, r, h.logger, "failed to update ad", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Ad updated successfully"})
}

// DeleteAd removes one of the caller's ads. Foreign ads look missing.
func (h *AdHandler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}
	id, err := parseAdID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.adService.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ad not found or unauthorized")
			return
		}
		writeInternal(w, r, h.logger, "failed to delete ad", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Ad deleted successfully"})
}

// ListPublic serves the public board, optionally filtered by ?category=.
func (h *AdHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	ads, err := h.adService.ListPublic(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeInternal(w, r, h.logger, "failed to list ads", err)
		return
	}
	writeJSON(w, http.StatusOK, AdListResponse{Ads: ads})
}
