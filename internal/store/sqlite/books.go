package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, created_at, title, description, authors, publisher,
	cover_url, cover_blurhash, pages, categories, publication_date,
	isbn_10, isbn_13, type, open_library_key`

// qualifiedBookColumns is bookColumns prefixed with the "b" alias used in joins.
const qualifiedBookColumns = `b.id, b.created_at, b.title, b.description, b.authors, b.publisher,
	b.cover_url, b.cover_blurhash, b.pages, b.categories, b.publication_date,
	b.isbn_10, b.isbn_13, b.type, b.open_library_key`

// bookDest returns the scan destinations for a book and a function that
// finishes decoding once Scan has run.
func bookDest(b *domain.Book) ([]any, func() error) {
	var (
		createdAt  string
		authors    string
		categories string
		bookType   string
	)
	dest := []any{
		&b.ID, &createdAt, &b.Title, &b.Description, &authors, &b.Publisher,
		&b.CoverURL, &b.CoverBlurHash, &b.Pages, &categories, &b.PublicationDate,
		&b.ISBN10, &b.ISBN13, &bookType, &b.OpenLibraryKey,
	}
	finish := func() error {
		var err error
		b.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
			return fmt.Errorf("decode authors: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &b.Categories); err != nil {
			return fmt.Errorf("decode categories: %w", err)
		}
		b.Type = domain.BookType(bookType)
		return nil
	}
	return dest, finish
}

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book
	dest, finish := bookDest(&b)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return &b, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateBook inserts a new book and sets its ID and creation time.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	authors, err := encodeList(book.Authors)
	if err != nil {
		return fmt.Errorf("encode authors: %w", err)
	}
	categories, err := encodeList(book.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO books (
			created_at, title, description, authors, publisher,
			cover_url, cover_blurhash, pages, categories, publication_date,
			isbn_10, isbn_13, type, open_library_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(book.CreatedAt),
		book.Title,
		book.Description,
		authors,
		book.Publisher,
		book.CoverURL,
		book.CoverBlurHash,
		book.Pages,
		categories,
		book.PublicationDate,
		book.ISBN10,
		book.ISBN13,
		string(book.Type),
		book.OpenLibraryKey,
	)
	if err != nil {
		return mapConstraintError(err)
	}

	book.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	if err := s.searchIndexer.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
	return nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BookExists reports whether a book with the given ID exists.
func (s *Store) BookExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBooksByIDs returns the books with the given IDs keyed by ID.
// Missing books are omitted from the map.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Book, error) {
	result := make(map[int64]*domain.Book, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result[b.ID] = b
	}
	return result, rows.Err()
}

// UpdateBookCover stores the cover location and its BlurHash placeholder.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) UpdateBookCover(ctx context.Context, id int64, coverURL, blurHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE books SET cover_url = ?, cover_blurhash = ? WHERE id = ?`,
		coverURL, blurHash, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListBooks returns a page of the catalog, newest first.
func (s *Store) ListBooks(ctx context.Context, bookType domain.BookType, page store.Page) (store.Result[*domain.Book], error) {
	return s.queryBooks(ctx, "", bookType, page, "created_at DESC, id DESC")
}

// SearchBooks matches the query case-insensitively against title,
// description, publisher, ISBNs and authors, ordered by authors descending.
func (s *Store) SearchBooks(ctx context.Context, query string, bookType domain.BookType, page store.Page) (store.Result[*domain.Book], error) {
	return s.queryBooks(ctx, query, bookType, page, "authors DESC, id")
}

func (s *Store) queryBooks(ctx context.Context, query string, bookType domain.BookType, page store.Page, orderBy string) (store.Result[*domain.Book], error) {
	page = page.Normalize()

	where := "1 = 1"
	var args []any
	if query != "" {
		where += ` AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
			OR publisher LIKE ? ESCAPE '\' OR isbn_10 LIKE ? ESCAPE '\'
			OR isbn_13 LIKE ? ESCAPE '\' OR authors LIKE ? ESCAPE '\')`
		pattern := likePattern(query)
		for range 6 {
			args = append(args, pattern)
		}
	}
	if bookType != "" {
		where += " AND type = ?"
		args = append(args, string(bookType))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE `+where, args...).Scan(&total); err != nil {
		return store.Result[*domain.Book]{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE `+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return store.Result[*domain.Book]{}, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return store.Result[*domain.Book]{}, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return store.Result[*domain.Book]{}, err
	}
	return store.NewResult(books, total, page), nil
}

// AllBooks streams every book in ID order, used to rebuild the search index.
func (s *Store) AllBooks(ctx context.Context, fn func(*domain.Book) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return rows.Err()
}
