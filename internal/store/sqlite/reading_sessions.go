package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

// readingSessionColumns is the ordered list of columns selected in reading session queries.
// Must match the scan order in scanReadingSession.
const readingSessionColumns = `rs.id, rs.uid, rs.book_id, rs.start_time, rs.end_time,
	rs.start_page, rs.end_page, rs.notes, rs.created_at`

const readingSessionSelect = `SELECT ` + readingSessionColumns + `, ` + qualifiedBookColumns + `
	FROM reading_sessions rs JOIN books b ON b.id = rs.book_id`

// scanReadingSession scans a joined reading_sessions/books row.
func scanReadingSession(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingSession, error) {
	var (
		rs        domain.ReadingSession
		book      domain.Book
		startTime string
		endTime   string
		createdAt string
	)

	dest := []any{
		&rs.ID, &rs.UID, &rs.BookID, &startTime, &endTime,
		&rs.StartPage, &rs.EndPage, &rs.Notes, &createdAt,
	}
	bookDests, finishBook := bookDest(&book)
	if err := scanner.Scan(append(dest, bookDests...)...); err != nil {
		return nil, err
	}

	var err error
	rs.StartTime, err = parseTime(startTime)
	if err != nil {
		return nil, err
	}
	rs.EndTime, err = parseTime(endTime)
	if err != nil {
		return nil, err
	}
	rs.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	if err := finishBook(); err != nil {
		return nil, err
	}
	rs.Book = &book
	return &rs, nil
}

func collectReadingSessions(rows *sql.Rows) ([]*domain.ReadingSession, error) {
	defer rows.Close()

	var sessions []*domain.ReadingSession
	for rows.Next() {
		rs, err := scanReadingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rs)
	}
	return sessions, rows.Err()
}

// CreateReadingSession inserts a new reading session and sets its ID.
// Returns store.ErrNotFound when the book or the profile does not exist.
func (s *Store) CreateReadingSession(ctx context.Context, session *domain.ReadingSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_sessions (
			uid, book_id, start_time, end_time, start_page, end_page, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.UID,
		session.BookID,
		formatTime(session.StartTime),
		formatTime(session.EndTime),
		session.StartPage,
		session.EndPage,
		session.Notes,
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}

	session.ID, err = result.LastInsertId()
	return err
}

// GetReadingSession retrieves a reading session by ID.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) GetReadingSession(ctx context.Context, id int64) (*domain.ReadingSession, error) {
	row := s.db.QueryRowContext(ctx, readingSessionSelect+` WHERE rs.id = ?`, id)

	rs, err := scanReadingSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// DeleteReadingSession removes a session owned by uid.
// Returns store.ErrNotFound if the session does not exist and
// store.ErrForbidden when it belongs to another user.
func (s *Store) DeleteReadingSession(ctx context.Context, uid string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reading_sessions WHERE id = ? AND uid = ?`, id, uid)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var owner string
	err = s.db.QueryRowContext(ctx, `SELECT uid FROM reading_sessions WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrForbidden
}

// ListReadingSessions returns the sessions of a user, most recent first.
// A zero bookID lists sessions of every book.
func (s *Store) ListReadingSessions(ctx context.Context, uid string, bookID int64) ([]*domain.ReadingSession, error) {
	query := readingSessionSelect + ` WHERE rs.uid = ?`
	args := []any{uid}
	if bookID != 0 {
		query += ` AND rs.book_id = ?`
		args = append(args, bookID)
	}
	query += ` ORDER BY rs.start_time DESC, rs.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectReadingSessions(rows)
}

// ListReadingSessionsInYear returns the sessions of a user started in year (UTC).
func (s *Store) ListReadingSessionsInYear(ctx context.Context, uid string, year int) ([]*domain.ReadingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		readingSessionSelect+` WHERE rs.uid = ? AND substr(rs.start_time, 1, 4) = ?
		ORDER BY rs.start_time DESC, rs.id DESC`,
		uid, yearKey(year))
	if err != nil {
		return nil, err
	}
	return collectReadingSessions(rows)
}

// ListReadingSessionsPage returns a page of a user's sessions, most recent
// first. A zero year lists every year; title filters on the book title.
func (s *Store) ListReadingSessionsPage(ctx context.Context, uid string, year int, title string, page store.Page) (store.Result[*domain.ReadingSession], error) {
	page = page.Normalize()

	where := ` WHERE rs.uid = ?`
	args := []any{uid}
	if year != 0 {
		where += ` AND substr(rs.start_time, 1, 4) = ?`
		args = append(args, yearKey(year))
	}
	if title != "" {
		where += ` AND b.title LIKE ? ESCAPE '\'`
		args = append(args, likePattern(title))
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_sessions rs JOIN books b ON b.id = rs.book_id`+where, args...).Scan(&total)
	if err != nil {
		return store.Result[*domain.ReadingSession]{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		readingSessionSelect+where+` ORDER BY rs.start_time DESC, rs.id DESC LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return store.Result[*domain.ReadingSession]{}, err
	}
	items, err := collectReadingSessions(rows)
	if err != nil {
		return store.Result[*domain.ReadingSession]{}, err
	}
	return store.NewResult(items, total, page), nil
}

// ReadingSessionYears returns the distinct years (UTC) in which a user
// started sessions, newest first.
func (s *Store) ReadingSessionYears(ctx context.Context, uid string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(substr(start_time, 1, 4) AS INTEGER) AS year
		FROM reading_sessions WHERE uid = ? ORDER BY year DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// TotalReadingTime sums the exact durations of every session of a user.
// Non-positive durations are skipped.
func (s *Store) TotalReadingTime(ctx context.Context, uid string) (time.Duration, error) {
	sessions, err := s.ListReadingSessions(ctx, uid, 0)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, rs := range sessions {
		if d := rs.Duration(); d > 0 {
			total += d
		}
	}
	return total, nil
}

func yearKey(year int) string {
	return strconv.Itoa(year)
}
