package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

func TestSetFavorite_RequiresRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")
	seedBook(t, s, 1, "Dune", 600)

	err := s.SetFavorite(ctx, "u1", 1, true)
	assert.ErrorIs(t, err, store.ErrInvalidState, "no row")

	_, err = s.UpsertBookState(ctx, "u1", 1, domain.StateReading.Ptr(),
		domain.FieldUpdates{domain.ColumnStartReading: time.Now()})
	require.NoError(t, err)

	err = s.SetFavorite(ctx, "u1", 1, true)
	assert.ErrorIs(t, err, store.ErrInvalidState)

	ub, err := s.GetUserBook(ctx, "u1", 1)
	require.NoError(t, err)
	assert.False(t, ub.IsFavorite)
}

func TestSetFavorite_Cap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")
	seedReadBooks(t, s, "u1", 42, 5)

	for id := int64(42); id <= 45; id++ {
		require.NoError(t, s.SetFavorite(ctx, "u1", id, true), "book %d", id)
	}

	err := s.SetFavorite(ctx, "u1", 46, true)
	assert.ErrorIs(t, err, store.ErrFavoriteLimit)

	// Already a favorite: no-op.
	assert.NoError(t, s.SetFavorite(ctx, "u1", 42, true))

	require.NoError(t, s.SetFavorite(ctx, "u1", 43, false))
	require.NoError(t, s.SetFavorite(ctx, "u1", 46, true))

	favorites, err := s.ListFavoriteUserBooks(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, favorites, domain.MaxFavorites)
}

func TestSetFavorite_UnfavoriteWithoutRow(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, "u1")

	assert.NoError(t, s.SetFavorite(context.Background(), "u1", 7, false))
}

func TestSetFavorite_CapIsPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")
	seedReadBooks(t, s, "u1", 1, 4)
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, s.SetFavorite(ctx, "u1", id, true))
	}

	_, err := s.UpsertBookState(ctx, "u2", 1, domain.StateRead.Ptr(),
		domain.FieldUpdates{domain.ColumnReadDate: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, s.SetFavorite(ctx, "u2", 1, true))
}

func TestSetFavorite_TriggerBlocksDirectWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")
	seedReadBooks(t, s, "u1", 1, 5)
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, s.SetFavorite(ctx, "u1", id, true))
	}

	_, err := s.db.ExecContext(ctx, `UPDATE users_books SET is_favorite = 1 WHERE uid = 'u1' AND book_id = 5`)
	require.Error(t, err)
	assert.ErrorIs(t, mapConstraintError(err), store.ErrFavoriteLimit)
}

func TestSetFavorite_ConcurrentNeverExceedsCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")
	seedReadBooks(t, s, "u1", 1, 12)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for id := int64(1); id <= 12; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := s.SetFavorite(ctx, "u1", id, true)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrFavoriteLimit):
				limited++
			default:
				t.Errorf("book %d: unexpected error %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, domain.MaxFavorites, succeeded)
	assert.Equal(t, 12-domain.MaxFavorites, limited)

	n, err := s.CountFavorites(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxFavorites, n)
}
