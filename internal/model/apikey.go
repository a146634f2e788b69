package model

import (
	"slices"
	"strings"
	"time"
)

// API key permission types. The type selects the tag character embedded in
// the key string at issuance; it is advisory only and is not checked against
// the operation being performed.
const (
	KeyTypeRead  = "read"
	KeyTypeWrite = "write"
	KeyTypeFull  = "full"
)

// ValidKeyTypes contains all accepted key type values.
var ValidKeyTypes = []string{KeyTypeRead, KeyTypeWrite, KeyTypeFull}

// IsValidKeyType reports whether t is one of the accepted key types.
func IsValidKeyType(t string) bool {
	return slices.Contains(ValidKeyTypes, t)
}

// APIKey represents an issued API key. The key string is globally unique and
// immutable once issued; there is no rotation-in-place, only delete-and-reissue.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Key        string     `json:"-"` // Plaintext credential, never serialized directly
	Type       string     `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// MaskedKey returns the key with the secret payload elided, keeping the
// prefix, tag, and last four characters. Safe to display after issuance.
func (k *APIKey) MaskedKey() string {
	parts := strings.SplitN(k.Key, "_", 3)
	if len(parts) != 3 || len(parts[2]) < 4 {
		return "****"
	}
	return parts[0] + "_" + parts[1] + "_..." + parts[2][len(parts[2])-4:]
}

// AuthContext holds the result of a successful API key validation.
// It is injected into the request context by the key-gate middleware.
type AuthContext struct {
	KeyID   string
	UserID  string
	KeyType string
}
