package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
	"github.com/hookupza/apiserver/types"
)

// AdminHandler serves moderation and user management endpoints.
type AdminHandler struct {
	userService *services.UserService
	adService   *services.AdService
	sessions    *SessionManager
	logger      *slog.Logger
}

func NewAdminHandler(
	userService *services.UserService,
	adService *services.AdService,
	sessions *SessionManager,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		adService:   adService,
		sessions:    sessions,
		logger:      logging.Resolve(logger),
	}
}

// AdminRouter registers admin routes. Everything except check_role goes
// through requireAdmin.
func AdminRouter(
	r chi.Router,
	userService *services.UserService,
	adService *services.AdService,
	sessions *SessionManager,
	logger *slog.Logger,
) {
	handler := NewAdminHandler(userService, adService, sessions, logger)

	r.Get("/check_role", handler.CheckRole)
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireAuth, handler.requireAdmin)

		r.Get("/stats", handler.Stats)
		r.Get("/all_ads", handler.AllAds)
		r.Post("/approve_ad/{adID}", handler.ApproveAd)
		r.Post("/reject_ad/{adID}", handler.RejectAd)
		r.Post("/auto_approve", handler.AutoApprove)
		r.Post("/expire_old_ads", handler.ExpireOldAds)

		r.Get("/users", handler.Users)
		r.Post("/create_admin", handler.CreateAdmin)
		r.Post("/update_role", handler.UpdateRole)
		r.Delete("/delete_user", handler.DeleteUser)
	})
}

// requireAdmin checks the stored role on every request.
func (h *AdminHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}

		isAdmin, err := h.userService.IsAdmin(r.Context(), userID)
		if err != nil {
			writeInternal(w, r, h.logger, "failed to check role", err)
			return
		}
		if !isAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CheckRoleResponse reports the access gate result without enforcing it.
type CheckRoleResponse struct {
	IsAdmin  bool   `json:"is_admin"`
	Username string `json:"username,omitempty"`
}

func (h *AdminHandler) CheckRole(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.UserID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, CheckRoleResponse{IsAdmin: false})
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, CheckRoleResponse{IsAdmin: false})
			return
		}
		writeInternal(w, r, h.logger, "failed to check role", err)
		return
	}
	if !user.IsAdmin() {
		writeJSON(w, http.StatusOK, CheckRoleResponse{IsAdmin: false})
		return
	}
	writeJSON(w, http.StatusOK, CheckRoleResponse{IsAdmin: true, Username: user.Username})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adService.Stats(r.Context())
	if err != nil {
		writeInternal(w, r, h.logger, "failed to load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) AllAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.adService.ListAll(r.Context())
	if err != nil {
		writeInternal(w, r, h.logger, "failed to list ads", err)
		return
	}
	writeJSON(w, http.StatusOK, AdListResponse{Ads: ads})
}

func (h *AdminHandler) ApproveAd(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.adService.Approve, "Ad approved")
}

func (h *AdminHandler) RejectAd(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.adService.Reject, "Ad rejected")
}

func (h *AdminHandler) moderate(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, id int) error,
	message string,
) {
	id, err := parseAdID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := transition(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ad not found")
			return
		}
		writeInternal(w, r, h.logger, "failed to update ad status", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// AutoApprove activates pending ads older than ?older_than (default 24h).
func (h *AdminHandler) AutoApprove(w http.ResponseWriter, r *http.Request) {
	olderThan := services.DefaultAutoApproveAfter
	if raw := strings.TrimSpace(r.URL.Query().Get("older_than")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid older_than")
			return
		}
		olderThan = parsed
	}

	count, err := h.adService.AutoApprovePending(r.Context(), olderThan)
	if err != nil {
		writeInternal(w, r, h.logger, "failed to auto-approve ads", err)
		return
	}
	h.logger.InfoContext(r.Context(), "auto-approved pending ads", "count", count, "older_than", olderThan)
	writeJSON(w, http.StatusOK, CountResponse{
		Message: fmt.Sprintf("%d ads auto-approved", count),
		Count:   count,
	})
}

func (h *AdminHandler) ExpireOldAds(w http.ResponseWriter, r *http.Request) {
	count, err := h.adService.ExpireActive(r.Context(), h.adService.Now())
	if err != nil {
		writeInternal(w, r, h.logger, "failed to expire ads", err)
		return
	}
	h.logger.InfoContext(r.Context(), "expired active ads", "count", count)
	writeJSON(w, http.StatusOK, CountResponse{
		Message: fmt.Sprintf("%d ads expired", count),
		Count:   count,
	})
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeInternal(w, r, h.logger, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: users})
}

// CreateAdminResponse acknowledges a new admin account.
type CreateAdminResponse struct {
	Message  string `json:"message"`
	AdminID  int    `json:"admin_id"`
	Username string `json:"username"`
}

func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if _, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	admin, err := h.userService.CreateAdmin(r.Context(), req.Username, req.Password, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrWeakPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeInternal(w, r, h.logger, "failed to create admin", err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin created", "admin_id", admin.ID)
	writeJSON(w, http.StatusCreated, CreateAdminResponse{
		Message:  "Admin created successfully",
		AdminID:  admin.ID,
		Username: admin.Username,
	})
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if msg, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	role := types.Role(strings.TrimSpace(req.Role))
	if err := h.userService.UpdateRole(r.Context(), req.UserID, role); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Invalid role")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeInternal(w, r, h.logger, "failed to update role", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Role updated to %s", role)})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req DeleteUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if msg, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.userService.Delete(r.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternal(w, r, h.logger, "failed to delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
