// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account. Users own API keys and channels;
// both are cascade-deleted with the user at the database level.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
