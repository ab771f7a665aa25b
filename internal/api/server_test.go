package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/auth"
	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/media/images"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
	"github.com/listenupapp/readup-server/internal/viewcache"
)

// testEnvelope decodes either envelope shape.
type testEnvelope[T any] struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	store  *sqlite.Store
	tokens *auth.TokenService
}

type testConfig struct {
	writesPerSecond float64
	burst           int
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, testConfig{writesPerSecond: 1000, burst: 1000})
}

func setupTestServerWith(t *testing.T, tc testConfig) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cache, err := viewcache.Open(viewcache.Options{TTL: time.Hour, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	covers, err := images.NewStorage(tmpDir, "covers")
	require.NoError(t, err)

	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	sorter := normalize.NewSorter("fr")
	validator := validation.New()

	stats := service.NewStatsService(st, cache, logger)
	services := &Services{
		Profile:        service.NewProfileService(st, stats, sseManager, sorter, validator, logger),
		Book:           service.NewBookService(st, nil, nil, sseManager, sorter, validator, logger),
		Shelf:          service.NewShelfService(st, sseManager, cache, sorter, logger),
		Favorite:       service.NewFavoriteService(st, sseManager, cache, logger),
		ReadingSession: service.NewReadingSessionService(st, sseManager, cache, validator, logger),
		Stats:          stats,
	}

	cfg := &config.Config{
		App:       config.AppConfig{Name: "ReadUp Test", Environment: "test"},
		Server:    config.ServerConfig{CORSOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{WritesPerSecond: tc.writesPerSecond, Burst: tc.burst},
	}

	s := NewServer(Dependencies{
		Config:     cfg,
		Services:   services,
		Storage:    &StorageServices{Covers: covers},
		Tokens:     tokens,
		DB:         st,
		SSEManager: sseManager,
		Logger:     logger,
	})
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  st,
		tokens: tokens,
	}
}

// token mints an access token for a user.
func (ts *testServer) token(t *testing.T, uid, email string, admin bool) string {
	t.Helper()
	token, err := ts.tokens.Mint(&domain.Profile{ID: uid, Email: email, IsAdmin: admin})
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// seedBook creates a catalog entry directly in the store.
func (ts *testServer) seedBook(t *testing.T, title string, pages int) int64 {
	t.Helper()
	book := &domain.Book{Title: title, Pages: pages, Authors: []string{"Frank Herbert"}, Type: domain.BookTypeRoman}
	require.NoError(t, ts.store.CreateBook(context.Background(), book))
	return book.ID
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	require.Equal(t, EnvelopeVersion, envelope.Version)
	return envelope
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, statusHealthy, envelope.Data.Components["database"].Status)
	assert.Equal(t, statusHealthy, envelope.Data.Components["sse"].Status)
	// No index is configured in tests.
	assert.Equal(t, statusDegraded, envelope.Data.Status)
}

func TestAuth_RequiredWithoutToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/me")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	envelope := decode[any](t, resp.Body.Bytes())
	assert.False(t, envelope.Success)
	assert.Equal(t, "UNAUTHORIZED", envelope.Code)
}

func TestAuth_InvalidTokenIsAnonymous(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuth_CreatesProfileOnFirstRequest(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/me", ts.token(t, "user-1", "jane.doe@example.com", false))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decode[ProfileResponse](t, resp.Body.Bytes())
	assert.Equal(t, "user-1", envelope.Data.ID)
	assert.Equal(t, "Jane Doe", envelope.Data.Username)
	assert.False(t, envelope.Data.IsAdmin)

	p, err := ts.store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", p.Email)
}

func TestWriteRateLimit(t *testing.T) {
	ts := setupTestServerWith(t, testConfig{writesPerSecond: 0.001, burst: 1})
	bearer := ts.token(t, "user-1", "jane@example.com", false)
	bookID := ts.seedBook(t, "Dune", 412)

	first := ts.api.Put(bookPath(bookID, "progress"), bearer, map[string]any{"page": 0})
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := ts.api.Put(bookPath(bookID, "progress"), bearer, map[string]any{"page": 0})
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	envelope := decode[any](t, second.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", envelope.Code)

	// Reads are never limited.
	read := ts.api.Get("/api/v1/me", bearer)
	assert.Equal(t, http.StatusOK, read.Code)
}
