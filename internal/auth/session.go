package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "auth-token"

	// DefaultSessionTTL is the session lifetime: tokens expire seven days
	// after issuance and there is no refresh.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// DevFallbackSecret is the insecure development signing secret used when no
// secret is configured. Deployments MUST override it in production; main
// refuses to start otherwise.
const DevFallbackSecret = "default-secret-key-for-development"

// Sessions issues and verifies signed, time-limited session tokens bound to
// a user id. Tokens are held only client-side in a cookie; the server keeps
// no session table, so a token stays valid until expiry regardless of logout
// elsewhere.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessions creates a session token service. The secret is injected here
// once at startup; business logic never reads it from the environment.
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// CreateToken builds a signed HS256 token with claims
// {sub: userID, iat: now, exp: now + ttl}.
func (s *Sessions) CreateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the token's signature and expiry and returns the bound
// user id. It returns "" for any failure (absent, malformed, bad signature,
// expired) rather than an error: verification degrades to "unauthenticated",
// it never raises past this boundary.
func (s *Sessions) VerifyToken(tokenString string) string {
	if tokenString == "" {
		return ""
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ""
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return ""
	}
	return claims.Subject
}

// SetCookie stores the token as the session cookie. It overwrites any prior
// session cookie: single active session from the client's point of view.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie. Only the local cookie is cleared;
// tokens held by other devices remain valid until expiry.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
