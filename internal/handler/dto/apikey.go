package dto

import (
	"time"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// CreateKeyRequest represents the request body for issuing an API key.
type CreateKeyRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// KeyResponse represents an issued key in list responses. The credential is
// masked; the plaintext was only available at issuance.
type KeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Type       string     `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// CreateKeyResponse carries the plaintext key, shown once at issuance.
type CreateKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ToKeyResponse converts an APIKey model to its masked list representation.
func ToKeyResponse(key *model.APIKey) KeyResponse {
	return KeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		Key:        key.MaskedKey(),
		Type:       key.Type,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
	}
}
