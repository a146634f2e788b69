package auth

import (
	"context"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey is the context key for the key-path AuthContext.
	authContextKey contextKey = "auth_context"
	// userContextKey is the context key for the session-path User.
	userContextKey contextKey = "session_user"
)

// ContextWithAuth adds a key-validation AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves the AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// ContextWithUser adds the session-authenticated user to the context.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the session-authenticated user from the context.
// Returns nil if not present.
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// UserIDFromContext resolves the acting user id from either authorization
// path: the session user if present, otherwise the API key's owner.
// Returns "" if the request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.UserID
	}
	return ""
}
