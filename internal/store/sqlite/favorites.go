package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

// SetFavorite flags or unflags a book as a favorite of the user.
//
// Unflagging always succeeds, including when the user has no row. Flagging
// is a single conditional UPDATE that checks the read state and the cap in
// the same statement, so concurrent requests cannot exceed MaxFavorites.
// When it changes nothing the cause is diagnosed afterwards:
// store.ErrInvalidState when the book is not read (or has no row),
// nil when it already was a favorite, store.ErrFavoriteLimit otherwise.
func (s *Store) SetFavorite(ctx context.Context, uid string, bookID int64, favorite bool) error {
	now := formatTime(s.now())

	if !favorite {
		_, err := s.db.ExecContext(ctx, `
			UPDATE users_books SET is_favorite = 0, updated_at = ?
			WHERE uid = ? AND book_id = ? AND is_favorite = 1`,
			now, uid, bookID)
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users_books SET is_favorite = 1, updated_at = ?
		WHERE uid = ? AND book_id = ? AND state = 'read' AND is_favorite = 0
			AND (SELECT COUNT(*) FROM users_books WHERE uid = ? AND is_favorite = 1) < ?`,
		now, uid, bookID, uid, domain.MaxFavorites)
	if err != nil {
		return mapConstraintError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.diagnoseFavorite(ctx, uid, bookID)
}

func (s *Store) diagnoseFavorite(ctx context.Context, uid string, bookID int64) error {
	var (
		state      string
		isFavorite int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state, is_favorite FROM users_books WHERE uid = ? AND book_id = ?`,
		uid, bookID).Scan(&state, &isFavorite)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrInvalidState.WithMessage("book is not on any shelf")
	}
	if err != nil {
		return err
	}

	switch {
	case domain.State(state) != domain.StateRead:
		return store.ErrInvalidState.WithMessage("only read books can be favorites")
	case isFavorite != 0:
		return nil
	default:
		return store.ErrFavoriteLimit
	}
}

// CountFavorites returns the number of favorites a user holds.
func (s *Store) CountFavorites(ctx context.Context, uid string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users_books WHERE uid = ? AND is_favorite = 1`, uid).Scan(&n)
	return n, err
}
