package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

// userBookColumns is the ordered list of users_books columns selected in
// joined queries. Must match the scan order in scanUserBook.
const userBookColumns = `ub.uid, ub.book_id, ub.state,
	ub.start_wishlist_date, ub.end_wishlist_date,
	ub.start_later_date, ub.end_later_date,
	ub.start_reading_date, ub.end_reading_date,
	ub.read_date, ub.current_page, ub.is_favorite,
	ub.created_at, ub.updated_at`

// userBookSelect selects a user book together with its catalog entry.
const userBookSelect = `SELECT ` + userBookColumns + `, ` + qualifiedBookColumns + `
	FROM users_books ub JOIN books b ON b.id = ub.book_id`

// scanUserBook scans a joined users_books/books row.
func scanUserBook(scanner interface{ Scan(dest ...any) error }) (*domain.UserBook, error) {
	var (
		ub         domain.UserBook
		book       domain.Book
		state      string
		dates      [7]sql.NullString
		isFavorite int
		createdAt  string
		updatedAt  string
	)

	dest := []any{&ub.UID, &ub.BookID, &state}
	for i := range dates {
		dest = append(dest, &dates[i])
	}
	dest = append(dest, &ub.CurrentPage, &isFavorite, &createdAt, &updatedAt)

	bookDests, finishBook := bookDest(&book)
	dest = append(dest, bookDests...)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	ub.State = domain.State(state)
	ub.IsFavorite = isFavorite != 0

	targets := []**time.Time{
		&ub.StartWishlistDate, &ub.EndWishlistDate,
		&ub.StartLaterDate, &ub.EndLaterDate,
		&ub.StartReadingDate, &ub.EndReadingDate,
		&ub.ReadDate,
	}
	for i, target := range targets {
		t, err := parseNullableTime(dates[i])
		if err != nil {
			return nil, err
		}
		*target = t
	}

	var err error
	ub.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	ub.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if err := finishBook(); err != nil {
		return nil, err
	}
	ub.Book = &book
	return &ub, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getUserBook(ctx context.Context, q querier, uid string, bookID int64) (*domain.UserBook, error) {
	row := q.QueryRowContext(ctx, userBookSelect+` WHERE ub.uid = ? AND ub.book_id = ?`, uid, bookID)

	ub, err := scanUserBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ub, nil
}

func collectUserBooks(rows *sql.Rows) ([]*domain.UserBook, error) {
	defer rows.Close()

	var result []*domain.UserBook
	for rows.Next() {
		ub, err := scanUserBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ub)
	}
	return result, rows.Err()
}

// UpsertBookState writes the shelf state of a book for a user in a single
// statement. A nil state deletes the row and returns (nil, nil). Otherwise
// the row is inserted or updated keyed on (uid, book_id): state plus the
// columns present in updates are written, every other column keeps its
// stored value. Leaving the read state clears the favorite flag.
// Returns store.ErrNotFound when the book or the profile does not exist.
func (s *Store) UpsertBookState(ctx context.Context, uid string, bookID int64, state *domain.State, updates domain.FieldUpdates) (*domain.UserBook, error) {
	if state == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM users_books WHERE uid = ? AND book_id = ?`, uid, bookID)
		return nil, err
	}

	for c := range updates {
		if !c.Valid() {
			return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown column %q", c))
		}
	}

	now := formatTime(s.now())
	cols := []string{"uid", "book_id", "state", "created_at", "updated_at"}
	args := []any{uid, bookID, string(*state), now, now}
	sets := []string{
		"state = excluded.state",
		"updated_at = excluded.updated_at",
		"is_favorite = CASE WHEN excluded.state = 'read' THEN users_books.is_favorite ELSE 0 END",
	}

	// Known columns in table order keep the statement text stable.
	for _, c := range domain.Columns {
		t, ok := updates[c]
		if !ok {
			continue
		}
		cols = append(cols, string(c))
		args = append(args, formatTime(t))
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users_books (`+strings.Join(cols, ", ")+`)
		VALUES (`+placeholders(len(cols))+`)
		ON CONFLICT(uid, book_id) DO UPDATE SET `+strings.Join(sets, ", "),
		args...)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	ub, err := getUserBook(ctx, tx, uid, bookID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ub, nil
}

// GetUserBook returns the row of a user for a book.
// Returns store.ErrNotFound if the user has no row for the book.
func (s *Store) GetUserBook(ctx context.Context, uid string, bookID int64) (*domain.UserBook, error) {
	return getUserBook(ctx, s.db, uid, bookID)
}

// ListUserBooks returns every row of a user, most recently updated first,
// optionally filtered by a case-insensitive title match.
func (s *Store) ListUserBooks(ctx context.Context, uid, title string) ([]*domain.UserBook, error) {
	query := userBookSelect + ` WHERE ub.uid = ?`
	args := []any{uid}
	if title != "" {
		query += ` AND b.title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(title))
	}
	query += ` ORDER BY ub.updated_at DESC, ub.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUserBooks(rows)
}

// ListUserBooksWithState returns every row of a user in the given state,
// most recently updated first.
func (s *Store) ListUserBooksWithState(ctx context.Context, uid string, state domain.State) ([]*domain.UserBook, error) {
	rows, err := s.db.QueryContext(ctx,
		userBookSelect+` WHERE ub.uid = ? AND ub.state = ? ORDER BY ub.updated_at DESC, ub.id DESC`,
		uid, string(state))
	if err != nil {
		return nil, err
	}
	return collectUserBooks(rows)
}

// ListUserBooksByState returns a page of a shelf with the total match count.
func (s *Store) ListUserBooksByState(ctx context.Context, uid string, state domain.State, title string, page store.Page) (store.Result[*domain.UserBook], error) {
	page = page.Normalize()

	where := ` WHERE ub.uid = ? AND ub.state = ?`
	args := []any{uid, string(state)}
	if title != "" {
		where += ` AND b.title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(title))
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users_books ub JOIN books b ON b.id = ub.book_id`+where, args...).Scan(&total)
	if err != nil {
		return store.Result[*domain.UserBook]{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		userBookSelect+where+` ORDER BY ub.updated_at DESC, ub.id DESC LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return store.Result[*domain.UserBook]{}, err
	}
	items, err := collectUserBooks(rows)
	if err != nil {
		return store.Result[*domain.UserBook]{}, err
	}
	return store.NewResult(items, total, page), nil
}

// ListFavoriteUserBooks returns the favorites of a user, optionally filtered
// by title.
func (s *Store) ListFavoriteUserBooks(ctx context.Context, uid, title string) ([]*domain.UserBook, error) {
	query := userBookSelect + ` WHERE ub.uid = ? AND ub.is_favorite = 1`
	args := []any{uid}
	if title != "" {
		query += ` AND b.title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(title))
	}
	query += ` ORDER BY ub.updated_at DESC, ub.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUserBooks(rows)
}

// ListUserBooksForBooks returns the rows a user has among the given books,
// keyed by book ID. Books without a row are omitted.
func (s *Store) ListUserBooksForBooks(ctx context.Context, uid string, bookIDs []int64) (map[int64]*domain.UserBook, error) {
	result := make(map[int64]*domain.UserBook, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(bookIDs)+1)
	args = append(args, uid)
	for _, id := range bookIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		userBookSelect+` WHERE ub.uid = ? AND ub.book_id IN (`+placeholders(len(bookIDs))+`)`, args...)
	if err != nil {
		return nil, err
	}
	items, err := collectUserBooks(rows)
	if err != nil {
		return nil, err
	}
	for _, ub := range items {
		result[ub.BookID] = ub
	}
	return result, nil
}

// SetCurrentPage records the progress of a book being read.
// Returns store.ErrNotFound without a row and store.ErrInvalidState when the
// book is not in the reading state.
func (s *Store) SetCurrentPage(ctx context.Context, uid string, bookID int64, page int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users_books SET current_page = ?, updated_at = ?
		WHERE uid = ? AND book_id = ? AND state = 'reading'`,
		page, formatTime(s.now()), uid, bookID)
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

	if _, err := s.GetUserBook(ctx, uid, bookID); err != nil {
		return err
	}
	return store.ErrInvalidState.WithMessage("book is not being read")
}

// AdvanceCurrentPage moves current_page forward to page when the book is
// being read and page is past the stored progress. Reports whether the row
// changed.
func (s *Store) AdvanceCurrentPage(ctx context.Context, uid string, bookID int64, page int) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users_books SET current_page = ?, updated_at = ?
		WHERE uid = ? AND book_id = ? AND state = 'reading' AND current_page < ?`,
		page, formatTime(s.now()), uid, bookID, page)
	if err != nil {
		return false, mapConstraintError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TotalPagesRead sums the pages of read books and the current page of books
// being read.
func (s *Store) TotalPagesRead(ctx context.Context, uid string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE ub.state
			WHEN 'read' THEN b.pages
			WHEN 'reading' THEN ub.current_page
			ELSE 0 END), 0)
		FROM users_books ub JOIN books b ON b.id = ub.book_id
		WHERE ub.uid = ?`, uid).Scan(&total)
	return total, err
}
