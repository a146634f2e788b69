package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/model"
)

// UserLoader resolves a user id from a verified session token.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// SessionAuthConfig holds configuration for the session auth middleware.
type SessionAuthConfig struct {
	Logger   *slog.Logger
	Sessions *auth.Sessions
	Users    UserLoader

	// LoginURL, when set, turns authentication failures into a 303 redirect
	// instead of a 401 JSON response. Used for browser-facing routes.
	LoginURL string
}

// SessionAuth returns a middleware that authenticates requests via the
// session cookie. A valid token loads the user and injects it into the
// request context; anything else fails closed.
func SessionAuth(cfg SessionAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil {
				rejectSession(w, r, cfg, "missing_cookie")
				return
			}

			userID := cfg.Sessions.VerifyToken(cookie.Value)
			if userID == "" {
				rejectSession(w, r, cfg, "invalid_token")
				return
			}

			user, err := cfg.Users.GetUser(r.Context(), userID)
			if err != nil {
				rejectSession(w, r, cfg, "unknown_user")
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectSession(w http.ResponseWriter, r *http.Request, cfg SessionAuthConfig, reason string) {
	cfg.Logger.Warn("session authentication failed",
		slog.String("reason", reason),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	if cfg.LoginURL != "" {
		http.Redirect(w, r, cfg.LoginURL, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
}
