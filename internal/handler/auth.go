package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/handler/dto"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// AuthHandler handles account registration, login, and session endpoints.
type AuthHandler struct {
	logger   *slog.Logger
	accounts *service.AccountService
	sessions *auth.Sessions
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *slog.Logger, accounts *service.AccountService, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		accounts: accounts,
		sessions: sessions,
	}
}

// Register handles POST /auth/register.
// On success the response carries a session cookie: registration signs the
// user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if fieldErrs, ok := service.AsFieldErrors(err); ok {
			writeFieldErrors(w, fieldErrs)
			return
		}
		h.logger.Error("registration failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	if !h.startSession(w, user.ID) {
		return
	}

	h.logger.Info("user registered", slog.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.accounts.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if fieldErrs, ok := service.AsFieldErrors(err); ok {
			writeFieldErrors(w, fieldErrs)
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, genericServerError)
		return
	}

	if !h.startSession(w, user.ID) {
		return
	}

	h.logger.Info("user logged in", slog.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout handles POST /auth/logout. Always succeeds; the cookie is cleared
// whether or not a valid session was presented.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me. The session middleware has already loaded the
// user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// startSession issues a token and sets the session cookie. Reports false
// after writing an error response if token creation fails.
func (h *AuthHandler) startSession(w http.ResponseWriter, userID string) bool {
	token, err := h.sessions.CreateToken(userID)
	if err != nil {
		h.logger.Error("failed to create session token", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, genericServerError)
		return false
	}
	h.sessions.SetCookie(w, token)
	return true
}
