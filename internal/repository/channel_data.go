package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// InsertFeed stores a data entry for a channel.
func (r *Repository) InsertFeed(ctx context.Context, feed *model.Feed) error {
	query := `
		INSERT INTO channel_data (
			id, channel_id,
			field1, field2, field3, field4, field5, field6, field7, field8,
			latitude, longitude, elevation, status,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		feed.ID,
		feed.ChannelID,
		feed.Field1, feed.Field2, feed.Field3, feed.Field4,
		feed.Field5, feed.Field6, feed.Field7, feed.Field8,
		feed.Latitude, feed.Longitude, feed.Elevation, feed.Status,
		feed.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feed: %w", err)
	}

	return nil
}

// ListFeeds retrieves up to limit entries for a channel created after since,
// returned oldest first.
func (r *Repository) ListFeeds(ctx context.Context, channelID string, limit int, since time.Time) ([]*model.Feed, error) {
	// Newest-first with a limit, then reversed, so the limit keeps the most
	// recent entries while the response stays in chronological order.
	query := `
		SELECT id, channel_id,
			field1, field2, field3, field4, field5, field6, field7, field8,
			latitude, longitude, elevation, status,
			created_at
		FROM channel_data
		WHERE channel_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, channelID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*model.Feed
	for rows.Next() {
		var feed model.Feed
		err := rows.Scan(
			&feed.ID,
			&feed.ChannelID,
			&feed.Field1, &feed.Field2, &feed.Field3, &feed.Field4,
			&feed.Field5, &feed.Field6, &feed.Field7, &feed.Field8,
			&feed.Latitude, &feed.Longitude, &feed.Elevation, &feed.Status,
			&feed.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, &feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeds: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(feeds)-1; i < j; i, j = i+1, j-1 {
		feeds[i], feeds[j] = feeds[j], feeds[i]
	}

	return feeds, nil
}
