package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DWE-CLOUD/metapi/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:key:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// cachedAuthContext is the Redis representation of a validated API key.
// The plaintext key never appears here; the cache is addressed by a derived
// hash of it.
type cachedAuthContext struct {
	KeyID   string `json:"key_id"`
	UserID  string `json:"user_id"`
	KeyType string `json:"key_type"`
}

// GetAuthContext retrieves a cached auth context by cache key.
// Returns nil on a miss; a cache failure is treated as a miss, never as an
// authentication error.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	key := authCachePrefix + cacheKey

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		KeyID:   cached.KeyID,
		UserID:  cached.UserID,
		KeyType: cached.KeyType,
	}, nil
}

// SetAuthContext caches an auth context.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	key := authCachePrefix + cacheKey

	data, err := json.Marshal(cachedAuthContext{
		KeyID:   auth.KeyID,
		UserID:  auth.UserID,
		KeyType: auth.KeyType,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, key, data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
// Used when a key is deleted so the credential stops validating promptly.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	key := authCachePrefix + cacheKey
	return c.client.Del(ctx, key).Err()
}
