package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
	"github.com/hookupza/apiserver/types"
)

// AuthHandler provides signup, login and session endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *SessionManager
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		logger:      logging.Resolve(logger),
	}
}

// AuthRouter registers auth routes on the given router. The limiter may be
// nil, in which case credential endpoints are not throttled.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	sessions *SessionManager,
	limiter *RateLimiter,
	logger *slog.Logger,
) {
	handler := NewAuthHandler(userService, sessions, logger)

	r.With(limiter.Limit("signup")).Post("/signup", handler.Signup)
	r.With(limiter.Limit("login")).Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/check_auth", handler.CheckAuth)
	r.With(sessions.RequireAuth).Delete("/delete_account", handler.DeleteAccount)
}

// Signup creates a new account and starts a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Age = strings.TrimSpace(req.Age)
	if msg, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	signup := services.Signup{
		Username:    req.Username,
		Password:    req.Password,
		Age:         req.Age,
		Location:    strings.TrimSpace(req.Location),
		Email:       strings.TrimSpace(req.Email),
		AccountType: types.AccountType(req.AccountType),
	}
	if signup.AccountType == types.AccountVendor && len(req.VendorData) > 0 {
		signup.VendorData = string(req.VendorData)
	}

	user, err := h.userService.Register(r.Context(), signup)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWeakPassword),
			errors.Is(err, services.ErrUsernameTaken),
			errors.Is(err, services.ErrInvalidAccountType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternal(w, r, h.logger, "failed to create user", err)
		}
		return
	}

	token, err := h.sessions.Start(w, user.ID)
	if err != nil {
		writeInternal(w, r, h.logger, "failed to start session", err)
		return
	}

	h.logger.InfoContext(r.Context(), "user signed up", "user_id", user.ID, "account_type", user.AccountType)
	writeJSON(w, http.StatusCreated, authResponse("Account created successfully", user, token))
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if _, ok := validateRequest(req); !ok {
		writeError(w, http.StatusBadRequest, "Missing username or password")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeInternal(w, r, h.logger, "failed to authenticate", err)
		return
	}

	token, err := h.sessions.Start(w, user.ID)
	if err != nil {
		writeInternal(w, r, h.logger, "failed to start session", err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse("Login successful", user, token))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// CheckAuthResponse reports the current session state.
type CheckAuthResponse struct {
	LoggedIn bool        `json:"logged_in"`
	UserData *types.User `json:"user_data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// CheckAuth returns the current user's profile when a session is present.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	notLoggedIn := CheckAuthResponse{LoggedIn: false, Error: "Not logged in"}

	userID, err := h.sessions.UserID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, notLoggedIn)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, notLoggedIn)
			return
		}
		writeInternal(w, r, h.logger, "failed to load user", err)
		return
	}

	writeJSON(w, http.StatusOK, CheckAuthResponse{LoggedIn: true, UserData: &user})
}

// DeleteAccount removes the caller and every ad they own.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternal(w, r, h.logger, "failed to delete account", err)
		return
	}

	h.sessions.End(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

func authResponse(message string, user types.User, token string) AuthResponse {
	return AuthResponse{
		Message:     message,
		UserID:      user.ID,
		Username:    user.Username,
		AccountType: user.AccountType,
		Role:        user.Role,
		Token:       token,
	}
}
