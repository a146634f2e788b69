package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
)

// CreateAPIKey inserts a new API key into the database.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, key, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.Key,
		key.Type,
		key.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByKey retrieves an API key by its key string.
// Used during authentication.
func (r *Repository) GetAPIKeyByKey(ctx context.Context, key string) (*model.APIKey, error) {
	query := `
		SELECT id, user_id, name, key, type, created_at, last_used_at
		FROM api_keys
		WHERE key = $1
	`

	return r.scanAPIKey(r.pool.QueryRow(ctx, query, key))
}

// GetAPIKeyOwned retrieves an API key by id, scoped to its owner.
func (r *Repository) GetAPIKeyOwned(ctx context.Context, id, userID string) (*model.APIKey, error) {
	query := `
		SELECT id, user_id, name, key, type, created_at, last_used_at
		FROM api_keys
		WHERE id = $1 AND user_id = $2
	`

	return r.scanAPIKey(r.pool.QueryRow(ctx, query, id, userID))
}

// ListAPIKeysByUserID retrieves all API keys for a user, newest first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	query := `
		SELECT id, user_id, name, key, type, created_at, last_used_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := r.scanAPIKeyFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// DeleteAPIKeyOwned removes an API key, scoped to its owner. Deleting a
// nonexistent or foreign id is not an error: the delete is idempotent from
// the caller's perspective.
func (r *Repository) DeleteAPIKeyOwned(ctx context.Context, id, userID string) error {
	query := `
		DELETE FROM api_keys
		WHERE id = $1 AND user_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	return nil
}

// UpdateAPIKeyLastUsed sets last_used_at to the current time. Concurrent
// updates are last-write-wins; the field is advisory telemetry.
func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	query := `
		UPDATE api_keys
		SET last_used_at = $2
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to update API key last used: %w", err)
	}

	return nil
}

func (r *Repository) scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.Key,
		&key.Type,
		&key.CreatedAt,
		&key.LastUsedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}

	return &key, nil
}

func (r *Repository) scanAPIKeyFromRows(rows pgx.Rows) (*model.APIKey, error) {
	var key model.APIKey
	err := rows.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.Key,
		&key.Type,
		&key.CreatedAt,
		&key.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
