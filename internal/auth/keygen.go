package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// Key format: ms_{tag}_{secret}
// Example: ms_w_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b4f8d2e1b
//
// The tag is a single character derived from the key type (r/w/f) so a key's
// declared permission is visible without a database lookup. The secret is 20
// random bytes, hex encoded. The format is part of the external contract.
const (
	KeySecretBytes = 20
	KeySecretLen   = 40 // hex encoded
)

var (
	// ErrInvalidKeyType indicates an unknown key type was requested.
	ErrInvalidKeyType = errors.New("invalid API key type")
	// ErrInvalidKeyFormat indicates the key string does not match the contract.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^ms_([rwf])_([0-9a-f]{40})$`)

	typeTags = map[string]string{
		model.KeyTypeRead:  "r",
		model.KeyTypeWrite: "w",
		model.KeyTypeFull:  "f",
	}

	tagTypes = map[string]string{
		"r": model.KeyTypeRead,
		"w": model.KeyTypeWrite,
		"f": model.KeyTypeFull,
	}
)

// GenerateAPIKey creates a new opaque API key for the given type.
// Returns the plaintext key; it is shown to the owner exactly once.
func GenerateAPIKey(keyType string) (string, error) {
	tag, ok := typeTags[keyType]
	if !ok {
		return "", ErrInvalidKeyType
	}

	secret := make([]byte, KeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}

	return fmt.Sprintf("ms_%s_%s", tag, hex.EncodeToString(secret)), nil
}

// ParsedKey contains the parsed parts of an API key.
type ParsedKey struct {
	Type   string // key type resolved from the tag
	Secret string
}

// ParseAPIKey extracts the components from a plaintext API key.
// Returns an error if the format is invalid.
func ParseAPIKey(key string) (*ParsedKey, error) {
	matches := keyFormatRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, ErrInvalidKeyFormat
	}

	return &ParsedKey{
		Type:   tagTypes[matches[1]],
		Secret: matches[2],
	}, nil
}

// ValidateKeyFormat checks if the key matches the expected format.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}
