package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
	"github.com/listenupapp/readup-server/internal/viewcache"
)

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if evt, ok := event.(sse.Event); ok {
		r.events = append(r.events, evt)
	}
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

type testEnv struct {
	store     *sqlite.Store
	cache     *viewcache.Cache
	events    *recordingEmitter
	logger    *slog.Logger
	sorter    *normalize.Sorter
	validator *validation.Validator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache, err := viewcache.Open(viewcache.Options{TTL: time.Hour, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return &testEnv{
		store:     st,
		cache:     cache,
		events:    &recordingEmitter{},
		logger:    logger,
		sorter:    normalize.NewSorter("fr"),
		validator: validation.New(),
	}
}

func (e *testEnv) shelf() *ShelfService {
	return NewShelfService(e.store, e.events, e.cache, e.sorter, e.logger)
}

func (e *testEnv) favorites() *FavoriteService {
	return NewFavoriteService(e.store, e.events, e.cache, e.logger)
}

func (e *testEnv) sessions() *ReadingSessionService {
	return NewReadingSessionService(e.store, e.events, e.cache, e.validator, e.logger)
}

func (e *testEnv) stats() *StatsService {
	return NewStatsService(e.store, e.cache, e.logger)
}

func (e *testEnv) profiles() *ProfileService {
	return NewProfileService(e.store, e.stats(), e.events, e.sorter, e.validator, e.logger)
}

func (e *testEnv) seedProfile(t *testing.T, uid, email string) {
	t.Helper()
	_, err := e.store.EnsureProfile(context.Background(), &domain.Profile{ID: uid, Email: email})
	require.NoError(t, err)
}

func (e *testEnv) seedBook(t *testing.T, title string, pages int, authors ...string) int64 {
	t.Helper()
	book := &domain.Book{Title: title, Pages: pages, Authors: authors, Type: domain.BookTypeRoman}
	require.NoError(t, e.store.CreateBook(context.Background(), book))
	return book.ID
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	return &t
}
