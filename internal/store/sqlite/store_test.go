package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedProfile inserts a profile with the given ID.
func seedProfile(t *testing.T, s *Store, id string) *domain.Profile {
	t.Helper()
	p, err := s.EnsureProfile(context.Background(), &domain.Profile{
		ID:    id,
		Email: id + "@example.com",
	})
	require.NoError(t, err)
	return p
}

// seedBook inserts a book with a fixed ID.
func seedBook(t *testing.T, s *Store, id int64, title string, pages int) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO books (id, created_at, title, pages, authors, categories, type)
		VALUES (?, ?, ?, ?, '["Author"]', '[]', 'roman')`,
		id, formatTime(time.Now()), title, pages)
	require.NoError(t, err)
}

// seedReadBooks puts books first..first+n-1 on the read shelf of uid.
func seedReadBooks(t *testing.T, s *Store, uid string, first int64, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range int64(n) {
		id := first + i
		seedBook(t, s, id, fmt.Sprintf("Book %d", id), 100)
		_, err := s.UpsertBookState(ctx, uid, id, domain.StateRead.Ptr(),
			domain.FieldUpdates{domain.ColumnReadDate: time.Now()})
		require.NoError(t, err)
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	for _, table := range []string{"profiles", "books", "users_books", "reading_sessions"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s1, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := formatTime(base)
	b := formatTime(base.Add(500 * time.Millisecond))
	c := formatTime(base.Add(time.Second))

	if !(a < b && b < c) {
		t.Fatalf("expected %s < %s < %s", a, b, c)
	}

	parsed, err := parseTime(b)
	require.NoError(t, err)
	require.True(t, parsed.Equal(base.Add(500*time.Millisecond)))
}
