package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/metrics"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/repository"
)

// KeyStore is the persistence surface the key service needs.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*model.APIKey, error)
	GetAPIKeyOwned(ctx context.Context, id, userID string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	DeleteAPIKeyOwned(ctx context.Context, id, userID string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches validated keys so repeated requests skip the store.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
	DeleteAuthContext(ctx context.Context, cacheKey string) error
}

// KeyService issues, lists, deletes, and validates API keys.
type KeyService struct {
	store   KeyStore
	cache   AuthCache
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewKeyService creates a new KeyService. cache may be nil, in which case
// every validation hits the store.
func NewKeyService(store KeyStore, cache AuthCache, logger *slog.Logger, recorder metrics.Recorder) *KeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &KeyService{
		store:   store,
		cache:   cache,
		logger:  logger,
		metrics: recorder,
	}
}

// CreateKey validates the request, generates a key string, and persists it.
// The returned entity carries the plaintext key; this is the only time it is
// available — afterwards only the masked form is ever shown.
func (s *KeyService) CreateKey(ctx context.Context, userID, name, keyType string) (*model.APIKey, error) {
	fieldErrs := FieldErrors{}

	if strings.TrimSpace(name) == "" {
		fieldErrs.Add("name", "Name is required")
	}
	if !model.IsValidKeyType(keyType) {
		fieldErrs.Add("type", "Type must be read, write, or full")
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	key, err := auth.GenerateAPIKey(keyType)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	apiKey := &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Key:       key,
		Type:      keyType,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("create API key: %w", err)
	}

	return apiKey, nil
}

// ListKeys returns all keys owned by the user, newest first.
func (s *KeyService) ListKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list API keys: %w", err)
	}
	return keys, nil
}

// DeleteKey removes a key owned by the user and evicts it from the cache.
// Deleting a nonexistent id reports success: the caller does not need to
// react to an already-gone key.
func (s *KeyService) DeleteKey(ctx context.Context, userID, id string) error {
	key, err := s.store.GetAPIKeyOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil
		}
		return fmt.Errorf("get API key: %w", err)
	}

	if err := s.store.DeleteAPIKeyOwned(ctx, id, userID); err != nil {
		return fmt.Errorf("delete API key: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteAuthContext(ctx, auth.QuickHash(key.Key)); err != nil {
			s.logger.Warn("failed to evict deleted key from cache",
				slog.String("key_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// ValidateKey checks a candidate key string and returns the auth context on
// success. Missing, malformed, and unknown keys all resolve to false with no
// distinction, avoiding credential enumeration. On success the key's
// last_used_at is bumped best-effort: a failed bump never fails validation.
//
// The key's permission type is not checked against any operation here; the
// tag is advisory only.
func (s *KeyService) ValidateKey(ctx context.Context, candidate string) (*model.AuthContext, bool) {
	if candidate == "" || !auth.ValidateKeyFormat(candidate) {
		s.metrics.IncAuthRejected()
		return nil, false
	}

	cacheKey := auth.QuickHash(candidate)

	if s.cache != nil {
		if authCtx, _ := s.cache.GetAuthContext(ctx, cacheKey); authCtx != nil {
			s.metrics.IncAuthCacheHit()
			s.touchKey(ctx, authCtx.KeyID)
			return authCtx, true
		}
		s.metrics.IncAuthCacheMiss()
	}

	key, err := s.store.GetAPIKeyByKey(ctx, candidate)
	if err != nil {
		if !errors.Is(err, repository.ErrAPIKeyNotFound) {
			s.logger.Error("store error during key validation",
				slog.String("error", err.Error()),
			)
		}
		s.metrics.IncAuthRejected()
		return nil, false
	}

	authCtx := &model.AuthContext{
		KeyID:   key.ID,
		UserID:  key.UserID,
		KeyType: key.Type,
	}

	if s.cache != nil {
		if err := s.cache.SetAuthContext(ctx, cacheKey, authCtx); err != nil {
			s.logger.Debug("failed to cache auth context",
				slog.String("error", err.Error()),
			)
		}
	}

	s.touchKey(ctx, key.ID)
	return authCtx, true
}

// touchKey bumps last_used_at. The update is advisory telemetry: errors are
// logged at debug and otherwise ignored.
func (s *KeyService) touchKey(ctx context.Context, keyID string) {
	if err := s.store.UpdateAPIKeyLastUsed(ctx, keyID); err != nil {
		s.logger.Debug("failed to update key last_used_at",
			slog.String("key_id", keyID),
			slog.String("error", err.Error()),
		)
	}
}
