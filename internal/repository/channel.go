package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// Common errors for channel repository operations.
var (
	ErrChannelNotFound = errors.New("channel not found")
)

// CreateChannel inserts a channel and its declared fields in one transaction.
func (r *Repository) CreateChannel(ctx context.Context, channel *model.Channel) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO channels (id, user_id, name, description, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, query,
		channel.ID,
		channel.UserID,
		channel.Name,
		channel.Description,
		channel.IsPublic,
		channel.CreatedAt,
		channel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	fieldQuery := `
		INSERT INTO channel_fields (id, channel_id, position, name, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, field := range channel.Fields {
		_, err = tx.Exec(ctx, fieldQuery,
			field.ID,
			field.ChannelID,
			field.Position,
			field.Name,
			field.Type,
			field.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create channel field: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit channel: %w", err)
	}

	return nil
}

// GetChannelByID retrieves a channel with its declared fields.
func (r *Repository) GetChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	query := `
		SELECT id, user_id, name, description, is_public, created_at, updated_at
		FROM channels
		WHERE id = $1
	`

	var channel model.Channel
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&channel.ID,
		&channel.UserID,
		&channel.Name,
		&channel.Description,
		&channel.IsPublic,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	fields, err := r.listChannelFields(ctx, id)
	if err != nil {
		return nil, err
	}
	channel.Fields = fields

	return &channel, nil
}

// ListChannelsByUserID retrieves all channels owned by a user, newest first.
func (r *Repository) ListChannelsByUserID(ctx context.Context, userID string) ([]*model.Channel, error) {
	query := `
		SELECT id, user_id, name, description, is_public, created_at, updated_at
		FROM channels
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*model.Channel
	for rows.Next() {
		var channel model.Channel
		err := rows.Scan(
			&channel.ID,
			&channel.UserID,
			&channel.Name,
			&channel.Description,
			&channel.IsPublic,
			&channel.CreatedAt,
			&channel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, &channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}

	for _, channel := range channels {
		fields, err := r.listChannelFields(ctx, channel.ID)
		if err != nil {
			return nil, err
		}
		channel.Fields = fields
	}

	return channels, nil
}

// UpdateChannel updates a channel's mutable attributes and bumps updated_at.
func (r *Repository) UpdateChannel(ctx context.Context, channel *model.Channel) error {
	query := `
		UPDATE channels
		SET name = $2, description = $3, is_public = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		channel.ID,
		channel.Name,
		channel.Description,
		channel.IsPublic,
		channel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrChannelNotFound
	}

	return nil
}

// DeleteChannel removes a channel. Fields and data rows cascade at the
// database level. Deleting a nonexistent channel is not an error.
func (r *Repository) DeleteChannel(ctx context.Context, id string) error {
	query := `
		DELETE FROM channels
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	return nil
}

func (r *Repository) listChannelFields(ctx context.Context, channelID string) ([]*model.ChannelField, error) {
	query := `
		SELECT id, channel_id, position, name, type, created_at
		FROM channel_fields
		WHERE channel_id = $1
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel fields: %w", err)
	}
	defer rows.Close()

	var fields []*model.ChannelField
	for rows.Next() {
		var field model.ChannelField
		err := rows.Scan(
			&field.ID,
			&field.ChannelID,
			&field.Position,
			&field.Name,
			&field.Type,
			&field.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel field: %w", err)
		}
		fields = append(fields, &field)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel fields: %w", err)
	}

	return fields, nil
}
