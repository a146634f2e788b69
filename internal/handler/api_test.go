package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DWE-CLOUD/metapi/internal/auth"
	"github.com/DWE-CLOUD/metapi/internal/middleware"
	"github.com/DWE-CLOUD/metapi/internal/model"
	"github.com/DWE-CLOUD/metapi/internal/repository"
	"github.com/DWE-CLOUD/metapi/internal/service"
)

// memStore is an in-memory implementation of the store interfaces, enough
// to exercise the full HTTP surface without Postgres.
type memStore struct {
	users    map[string]*model.User
	keys     map[string]*model.APIKey
	channels map[string]*model.Channel
	feeds    []*model.Feed
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		keys:     make(map[string]*model.APIKey),
		channels: make(map[string]*model.Channel),
	}
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	m.keys[key.ID] = key
	return nil
}

func (m *memStore) GetAPIKeyByKey(_ context.Context, key string) (*model.APIKey, error) {
	for _, k := range m.keys {
		if k.Key == key {
			return k, nil
		}
	}
	return nil, repository.ErrAPIKeyNotFound
}

func (m *memStore) GetAPIKeyOwned(_ context.Context, id, userID string) (*model.APIKey, error) {
	if k, ok := m.keys[id]; ok && k.UserID == userID {
		return k, nil
	}
	return nil, repository.ErrAPIKeyNotFound
}

func (m *memStore) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	for _, k := range m.keys {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) DeleteAPIKeyOwned(_ context.Context, id, userID string) error {
	if k, ok := m.keys[id]; ok && k.UserID == userID {
		delete(m.keys, id)
	}
	return nil
}

func (m *memStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	if k, ok := m.keys[id]; ok {
		now := time.Now()
		k.LastUsedAt = &now
	}
	return nil
}

func (m *memStore) CreateChannel(_ context.Context, channel *model.Channel) error {
	m.channels[channel.ID] = channel
	return nil
}

func (m *memStore) GetChannelByID(_ context.Context, id string) (*model.Channel, error) {
	if c, ok := m.channels[id]; ok {
		return c, nil
	}
	return nil, repository.ErrChannelNotFound
}

func (m *memStore) ListChannelsByUserID(_ context.Context, userID string) ([]*model.Channel, error) {
	var channels []*model.Channel
	for _, c := range m.channels {
		if c.UserID == userID {
			channels = append(channels, c)
		}
	}
	return channels, nil
}

func (m *memStore) UpdateChannel(_ context.Context, channel *model.Channel) error {
	if _, ok := m.channels[channel.ID]; !ok {
		return repository.ErrChannelNotFound
	}
	m.channels[channel.ID] = channel
	return nil
}

func (m *memStore) DeleteChannel(_ context.Context, id string) error {
	delete(m.channels, id)
	return nil
}

func (m *memStore) InsertFeed(_ context.Context, feed *model.Feed) error {
	m.feeds = append(m.feeds, feed)
	return nil
}

func (m *memStore) ListFeeds(_ context.Context, channelID string, limit int, since time.Time) ([]*model.Feed, error) {
	var feeds []*model.Feed
	for _, f := range m.feeds {
		if f.ChannelID == channelID && f.CreatedAt.After(since) {
			feeds = append(feeds, f)
		}
	}
	if len(feeds) > limit {
		feeds = feeds[len(feeds)-limit:]
	}
	return feeds, nil
}

// newTestRouter assembles the full route tree over in-memory stores,
// mirroring the production wiring.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	sessions := auth.NewSessions("test-secret", time.Hour, false)

	accounts := service.NewAccountService(store)
	keys := service.NewKeyService(store, nil, logger, nil)
	channels := service.NewChannelService(store, nil)

	h := New()
	authHandler := NewAuthHandler(logger, accounts, sessions)
	keyHandler := NewAPIKeyHandler(logger, keys)
	channelHandler := NewChannelHandler(logger, channels)
	dataHandler := NewDataHandler(logger, channels, channelHandler)

	keyGate := middleware.APIKeyAuth(middleware.APIKeyAuthConfig{Logger: logger, Keys: keys})
	sessionGate := middleware.SessionAuth(middleware.SessionAuthConfig{
		Logger:   logger,
		Sessions: sessions,
		Users:    accounts,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)
	r.With(sessionGate).Get("/auth/me", authHandler.Me)

	r.Route("/v1", func(r chi.Router) {
		r.Use(sessionGate)
		r.Route("/keys", func(r chi.Router) {
			r.Get("/", keyHandler.List)
			r.Post("/", keyHandler.Create)
			r.Delete("/{id}", keyHandler.Delete)
		})
		r.Route("/channels", func(r chi.Router) {
			r.Get("/", channelHandler.List)
			r.Post("/", channelHandler.Create)
			r.Get("/{id}", channelHandler.Get)
			r.Put("/{id}", channelHandler.Update)
			r.Delete("/{id}", channelHandler.Delete)
			r.Get("/{id}/data", dataHandler.Get)
			r.Post("/{id}/data", dataHandler.Post)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(keyGate)
		r.Route("/channels", func(r chi.Router) {
			r.Get("/", channelHandler.List)
			r.Post("/", channelHandler.Create)
			r.Get("/{id}", channelHandler.Get)
			r.Put("/{id}", channelHandler.Update)
			r.Delete("/{id}", channelHandler.Delete)
			r.Get("/{id}/data", dataHandler.Get)
			r.Post("/{id}/data", dataHandler.Post)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, prepare func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if prepare != nil {
		prepare(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("response carries no session cookie")
	return nil
}

func TestAPIFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	// Register and capture the session cookie.
	rec := doJSON(t, router, "POST", "/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)

	withSession := func(req *http.Request) { req.AddCookie(cookie) }

	// Issue a write key from the dashboard.
	rec = doJSON(t, router, "POST", "/v1/keys", `{"name":"device","type":"write"}`, withSession)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key status = %d, body %s", rec.Code, rec.Body.String())
	}
	var keyResp struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	decodeBody(t, rec, &keyResp)
	if !strings.HasPrefix(keyResp.Key, "ms_w_") {
		t.Fatalf("key = %q, want ms_w_ prefix", keyResp.Key)
	}

	withKey := func(req *http.Request) { req.Header.Set("X-API-Key", keyResp.Key) }

	// Listing keys afterwards only shows the masked form.
	rec = doJSON(t, router, "GET", "/v1/keys", "", withSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("list keys status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), keyResp.Key) {
		t.Error("plaintext key leaked in list response")
	}

	// The write-tagged key still reads: the tag is not enforced.
	rec = doJSON(t, router, "GET", "/api/v1/channels", "", withKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("list channels via key status = %d", rec.Code)
	}

	// Create a channel through the data API.
	rec = doJSON(t, router, "POST", "/api/v1/channels",
		`{"name":"Weather","fields":[{"name":"Temperature","type":"number"}]}`, withKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create channel status = %d, body %s", rec.Code, rec.Body.String())
	}
	var chResp struct {
		Channel model.Channel `json:"channel"`
	}
	decodeBody(t, rec, &chResp)
	channelID := chResp.Channel.ID

	// Post an entry; numeric JSON values are accepted.
	rec = doJSON(t, router, "POST", "/api/v1/channels/"+channelID+"/data",
		`{"field1":21.5,"status":"ok"}`, withKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post data status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Entries without field values are rejected.
	rec = doJSON(t, router, "POST", "/api/v1/channels/"+channelID+"/data",
		`{"status":"idle"}`, withKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("post empty data status = %d", rec.Code)
	}

	// Read the entry back.
	rec = doJSON(t, router, "GET", "/api/v1/channels/"+channelID+"/data", "", withKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("get data status = %d", rec.Code)
	}
	var feedResp struct {
		ChannelID string        `json:"channel_id"`
		Feeds     []*model.Feed `json:"feeds"`
	}
	decodeBody(t, rec, &feedResp)
	if len(feedResp.Feeds) != 1 {
		t.Fatalf("got %d feeds, want 1", len(feedResp.Feeds))
	}
	if feedResp.Feeds[0].Field1 == nil || *feedResp.Feeds[0].Field1 != "21.5" {
		t.Errorf("field1 = %v", feedResp.Feeds[0].Field1)
	}

	// Dashboard sees the same channel through the session path.
	rec = doJSON(t, router, "GET", "/v1/channels/"+channelID, "", withSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("get channel via session status = %d", rec.Code)
	}

	// Delete the channel; a repeat delete still reports success.
	for i := 0; i < 2; i++ {
		rec = doJSON(t, router, "DELETE", "/api/v1/channels/"+channelID, "", withKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete channel status = %d", rec.Code)
		}
		var delResp struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		decodeBody(t, rec, &delResp)
		if !delResp.Success {
			t.Error("delete should report success")
		}
	}

	// Delete the key; it stops validating.
	rec = doJSON(t, router, "DELETE", "/v1/keys/"+keyResp.ID, "", withSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete key status = %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/v1/channels", "", withKey)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted key status = %d, want 401", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"Invalid API key"}` {
		t.Errorf("body = %s", body)
	}
}

func TestAPIFlow_AuthSurface(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	t.Run("duplicate email", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/auth/register",
			`{"name":"Bob","email":"bob@example.com","password":"password123"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Email already in use") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("login then me", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/auth/login",
			`{"email":"bob@example.com","password":"password123"}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("login status = %d", rec.Code)
		}
		cookie := sessionCookie(t, rec)

		rec = doJSON(t, router, "GET", "/auth/me", "", func(req *http.Request) {
			req.AddCookie(cookie)
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("me status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "bob@example.com") {
			t.Errorf("body = %s", rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Error("password material leaked in /auth/me")
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/auth/login",
			`{"email":"bob@example.com","password":"wrong-password"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid email or password") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("me without session", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/auth/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/auth/logout", "", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		cookie := sessionCookie(t, rec)
		if cookie.MaxAge != -1 || cookie.Value != "" {
			t.Errorf("cookie not cleared: MaxAge=%d Value=%q", cookie.MaxAge, cookie.Value)
		}
	})
}

func TestAPIFlow_ValidationShape(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/auth/register",
		`{"name":"Carol","email":"carol@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	withSession := func(req *http.Request) { req.AddCookie(cookie) }

	rec = doJSON(t, router, "POST", "/v1/keys", `{"name":"sensor","type":"full"}`, withSession)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key status = %d", rec.Code)
	}
	var keyResp struct {
		Key string `json:"key"`
	}
	decodeBody(t, rec, &keyResp)
	withKey := func(req *http.Request) { req.Header.Set("X-API-Key", keyResp.Key) }

	// The data API reports validation failures as a flat message.
	rec = doJSON(t, router, "POST", "/api/v1/channels", `{"description":"no name"}`, withKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"Channel name is required"}` {
		t.Errorf("body = %s", body)
	}

	// The dashboard path keeps field-keyed messages.
	rec = doJSON(t, router, "POST", "/v1/channels", `{"description":"no name"}`, withSession)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var fieldResp struct {
		Error map[string][]string `json:"error"`
	}
	decodeBody(t, rec, &fieldResp)
	if got := fieldResp.Error["name"]; len(got) != 1 || got[0] != "Channel name is required" {
		t.Errorf("field errors = %v", fieldResp.Error)
	}
}

func TestAPIFlow_UnknownRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"resource not found"}` {
		t.Errorf("body = %s", body)
	}

	rec = doJSON(t, router, "PATCH", "/auth/register", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
