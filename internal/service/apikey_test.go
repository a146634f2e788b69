package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/metrics"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/repository"
)

// fakeKeyStore is an in-memory KeyStore for tests.
type fakeKeyStore struct {
	byID        map[string]*model.APIKey
	touchedIDs  []string
	storeLookup int
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{byID: make(map[string]*model.APIKey)}
}

func (f *fakeKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	f.byID[key.ID] = key
	return nil
}

func (f *fakeKeyStore) GetAPIKeyByKey(_ context.Context, key string) (*model.APIKey, error) {
	f.storeLookup++
	for _, k := range f.byID {
		if k.Key == key {
			return k, nil
		}
	}
	return nil, repository.ErrAPIKeyNotFound
}

func (f *fakeKeyStore) GetAPIKeyOwned(_ context.Context, id, userID string) (*model.APIKey, error) {
	key, ok := f.byID[id]
	if !ok || key.UserID != userID {
		return nil, repository.ErrAPIKeyNotFound
	}
	return key, nil
}

func (f *fakeKeyStore) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	for _, k := range f.byID {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeKeyStore) DeleteAPIKeyOwned(_ context.Context, id, userID string) error {
	key, ok := f.byID[id]
	if ok && key.UserID == userID {
		delete(f.byID, id)
	}
	return nil
}

func (f *fakeKeyStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	f.touchedIDs = append(f.touchedIDs, id)
	return nil
}

// fakeAuthCache is an in-memory AuthCache for tests.
type fakeAuthCache struct {
	entries map[string]*model.AuthContext
}

func newFakeAuthCache() *fakeAuthCache {
	return &fakeAuthCache{entries: make(map[string]*model.AuthContext)}
}

func (f *fakeAuthCache) GetAuthContext(_ context.Context, cacheKey string) (*model.AuthContext, error) {
	return f.entries[cacheKey], nil
}

func (f *fakeAuthCache) SetAuthContext(_ context.Context, cacheKey string, auth *model.AuthContext) error {
	f.entries[cacheKey] = auth
	return nil
}

func (f *fakeAuthCache) DeleteAuthContext(_ context.Context, cacheKey string) error {
	delete(f.entries, cacheKey)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateKey(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	svc := NewKeyService(store, nil, testLogger(), nil)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		key, err := svc.CreateKey(ctx, "user-1", "sensor uplink", model.KeyTypeWrite)
		if err != nil {
			t.Fatalf("CreateKey failed: %v", err)
		}
		if !auth.ValidateKeyFormat(key.Key) {
			t.Errorf("key %q does not match the expected format", key.Key)
		}
		if key.Type != model.KeyTypeWrite {
			t.Errorf("type = %q, want %q", key.Type, model.KeyTypeWrite)
		}
		if _, ok := store.byID[key.ID]; !ok {
			t.Error("key was not persisted")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.CreateKey(ctx, "user-1", "  ", model.KeyTypeRead)
		fieldErrs, ok := AsFieldErrors(err)
		if !ok || len(fieldErrs["name"]) == 0 {
			t.Fatalf("expected name field error, got %v", err)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := svc.CreateKey(ctx, "user-1", "sensor", "admin")
		fieldErrs, ok := AsFieldErrors(err)
		if !ok || len(fieldErrs["type"]) == 0 {
			t.Fatalf("expected type field error, got %v", err)
		}
	})
}

func TestDeleteKey_Idempotent(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	svc := NewKeyService(store, nil, testLogger(), nil)
	ctx := context.Background()

	key, err := svc.CreateKey(ctx, "user-1", "sensor", model.KeyTypeRead)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if err := svc.DeleteKey(ctx, "user-1", key.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := svc.DeleteKey(ctx, "user-1", key.ID); err != nil {
		t.Fatalf("second delete should succeed, got %v", err)
	}
	if err := svc.DeleteKey(ctx, "user-1", "no-such-id"); err != nil {
		t.Fatalf("deleting unknown id should succeed, got %v", err)
	}
}

func TestDeleteKey_EvictsCache(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	cache := newFakeAuthCache()
	svc := NewKeyService(store, cache, testLogger(), nil)
	ctx := context.Background()

	key, err := svc.CreateKey(ctx, "user-1", "sensor", model.KeyTypeRead)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	// Populate the cache via a validation pass.
	if _, ok := svc.ValidateKey(ctx, key.Key); !ok {
		t.Fatal("ValidateKey should accept a freshly created key")
	}
	if len(cache.entries) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", len(cache.entries))
	}

	if err := svc.DeleteKey(ctx, "user-1", key.ID); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if len(cache.entries) != 0 {
		t.Error("cache entry should be evicted on delete")
	}

	if _, ok := svc.ValidateKey(ctx, key.Key); ok {
		t.Error("deleted key should no longer validate")
	}
}

func TestValidateKey(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	svc := NewKeyService(store, nil, testLogger(), nil)
	ctx := context.Background()

	key, err := svc.CreateKey(ctx, "user-1", "sensor", model.KeyTypeWrite)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	t.Run("known key", func(t *testing.T) {
		authCtx, ok := svc.ValidateKey(ctx, key.Key)
		if !ok {
			t.Fatal("ValidateKey rejected a known key")
		}
		if authCtx.UserID != "user-1" || authCtx.KeyID != key.ID {
			t.Errorf("auth context = %+v", authCtx)
		}
		if authCtx.KeyType != model.KeyTypeWrite {
			t.Errorf("key type = %q, want %q", authCtx.KeyType, model.KeyTypeWrite)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		unknown, err := auth.GenerateAPIKey(model.KeyTypeRead)
		if err != nil {
			t.Fatalf("GenerateAPIKey failed: %v", err)
		}
		if _, ok := svc.ValidateKey(ctx, unknown); ok {
			t.Error("unknown key should be rejected")
		}
	})

	t.Run("malformed key skips the store", func(t *testing.T) {
		before := store.storeLookup
		for _, candidate := range []string{"", "ms_w_short", "sk_live_abc", "ms_x_" + key.Key[5:]} {
			if _, ok := svc.ValidateKey(ctx, candidate); ok {
				t.Errorf("candidate %q should be rejected", candidate)
			}
		}
		if store.storeLookup != before {
			t.Error("malformed candidates should never reach the store")
		}
	})
}

func TestValidateKey_BumpsLastUsed(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	svc := NewKeyService(store, nil, testLogger(), nil)
	ctx := context.Background()

	key, err := svc.CreateKey(ctx, "user-1", "sensor", model.KeyTypeFull)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if _, ok := svc.ValidateKey(ctx, key.Key); !ok {
		t.Fatal("ValidateKey rejected a known key")
	}
	if len(store.touchedIDs) != 1 || store.touchedIDs[0] != key.ID {
		t.Errorf("expected one last_used bump for %q, got %v", key.ID, store.touchedIDs)
	}
}

func TestValidateKey_CacheHitSkipsStore(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	cache := newFakeAuthCache()
	rec := metrics.NewInMemory()
	svc := NewKeyService(store, cache, testLogger(), rec)
	ctx := context.Background()

	key, err := svc.CreateKey(ctx, "user-1", "sensor", model.KeyTypeRead)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	if _, ok := svc.ValidateKey(ctx, key.Key); !ok {
		t.Fatal("first validation failed")
	}
	lookups := store.storeLookup

	if _, ok := svc.ValidateKey(ctx, key.Key); !ok {
		t.Fatal("second validation failed")
	}
	if store.storeLookup != lookups {
		t.Error("cached validation should not hit the store")
	}

	snap := rec.Snapshot()
	if snap.AuthCacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", snap.AuthCacheHits)
	}
	if snap.AuthCacheMisses != 1 {
		t.Errorf("cache misses = %d, want 1", snap.AuthCacheMisses)
	}

	// The cache hit still bumps last_used.
	if len(store.touchedIDs) != 2 {
		t.Errorf("expected 2 last_used bumps, got %d", len(store.touchedIDs))
	}
}
