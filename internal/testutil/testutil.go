// Package testutil provides helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates the whole schema for tests, applying the
// migrations in dependency order.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	apply := func(name, direction string) error {
		sql, err := os.ReadFile(filepath.Join(root, "migrations", name+"."+direction+".sql"))
		if err != nil {
			return fmt.Errorf("read %s %s migration: %w", name, direction, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s %s migration: %w", name, direction, err)
		}
		return nil
	}

	// Tear down children first to satisfy foreign keys.
	for _, name := range []string{"000003_channels", "000002_api_keys", "000001_users"} {
		if err := apply(name, "down"); err != nil {
			return err
		}
	}
	for _, name := range []string{"000001_users", "000002_api_keys", "000003_channels"} {
		if err := apply(name, "up"); err != nil {
			return err
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           UniqueID("user"),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$10$testhashtesthashtesthashtesthashtesthashtesthashtest",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, userID, keyString string) *model.APIKey {
	t.Helper()
	return &model.APIKey{
		ID:        UniqueID("key"),
		UserID:    userID,
		Name:      "Test Key",
		Key:       keyString,
		Type:      model.KeyTypeRead,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTestChannel creates a test channel with sensible defaults.
func NewTestChannel(t testing.TB, userID string) *model.Channel {
	t.Helper()
	now := time.Now().UTC()
	return &model.Channel{
		ID:          UniqueID("chan"),
		UserID:      userID,
		Name:        "Test Channel",
		Description: "Channel for integration tests",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestFeed creates a test data entry with field1 set.
func NewTestFeed(t testing.TB, channelID string) *model.Feed {
	t.Helper()
	value := "42"
	return &model.Feed{
		ID:        UniqueID("feed"),
		ChannelID: channelID,
		Field1:    &value,
		CreatedAt: time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
