package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/media/covers"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/search"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
)

// CoverPathPrefix is where stored covers are served from.
const CoverPathPrefix = "/api/v1/covers/"

// BookSearcher runs full-text queries over the catalog.
type BookSearcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// CoverFetcher stores a remote cover locally.
type CoverFetcher interface {
	Download(ctx context.Context, bookID int64, title, url string) (*covers.Result, error)
}

// CreateBookInput is a catalog entry submitted by an administrator.
type CreateBookInput struct {
	Title           string   `json:"title" validate:"required,max=500"`
	Description     string   `json:"description,omitempty"`
	Authors         []string `json:"authors,omitempty" validate:"dive,required,max=200"`
	Publisher       string   `json:"publisher,omitempty" validate:"max=200"`
	CoverURL        string   `json:"cover_url,omitempty" validate:"omitempty,http_url"`
	Pages           int      `json:"pages,omitempty" validate:"gte=0"`
	Categories      []string `json:"categories,omitempty" validate:"dive,required"`
	PublicationDate string   `json:"publication_date,omitempty"`
	ISBN10          string   `json:"isbn_10,omitempty" validate:"omitempty,isbn10"`
	ISBN13          string   `json:"isbn_13,omitempty" validate:"omitempty,isbn13"`
	Type            string   `json:"type,omitempty" validate:"omitempty,booktype"`
	OpenLibraryKey  string   `json:"open_library_key,omitempty"`
}

// BookService manages the shared catalog.
type BookService struct {
	store     *sqlite.Store
	searcher  BookSearcher
	covers    CoverFetcher
	events    store.EventEmitter
	sorter    *normalize.Sorter
	validator *validation.Validator
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewBookService creates a new book service. searcher and covers may be nil:
// search then uses the SQL pattern match and covers stay remote.
func NewBookService(
	store *sqlite.Store,
	searcher BookSearcher,
	covers CoverFetcher,
	events store.EventEmitter,
	sorter *normalize.Sorter,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:     store,
		searcher:  searcher,
		covers:    covers,
		events:    events,
		sorter:    sorter,
		validator: validator,
		logger:    logger,
	}
}

// CreateBook adds a book to the catalog. Only administrators may do so. The
// description is stored as Markdown; a remote cover is fetched in the
// background.
func (s *BookService) CreateBook(ctx context.Context, uid string, isAdmin bool, in CreateBookInput) (*domain.Book, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, domainerrors.Forbidden("only administrators can add books")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Authors = trimAll(in.Authors)
	in.Categories = trimAll(in.Categories)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	book := &domain.Book{
		Title:           in.Title,
		Description:     normalize.Description(in.Description),
		Authors:         in.Authors,
		Publisher:       strings.TrimSpace(in.Publisher),
		CoverURL:        in.CoverURL,
		Pages:           in.Pages,
		Categories:      in.Categories,
		PublicationDate: strings.TrimSpace(in.PublicationDate),
		ISBN10:          in.ISBN10,
		ISBN13:          in.ISBN13,
		Type:            domain.BookType(in.Type),
		OpenLibraryKey:  in.OpenLibraryKey,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fromStore(err, "book")
	}

	s.logger.Info("book created",
		"book_id", book.ID,
		"title", book.Title,
		"created_by", uid)
	s.events.Emit(sse.NewBookCreatedEvent(book))

	if s.covers != nil && book.CoverURL != "" {
		s.wg.Add(1)
		go s.fetchCover(book.ID, book.Title, book.CoverURL)
	}
	return book, nil
}

// fetchCover runs detached from the request that created the book.
func (s *BookService) fetchCover(bookID int64, title, url string) {
	defer s.wg.Done()
	ctx := context.Background()

	result, err := s.covers.Download(ctx, bookID, title, url)
	if err != nil {
		s.logger.Warn("cover download failed",
			"book_id", bookID,
			"url", url,
			"error", err)
		return
	}

	if err := s.store.UpdateBookCover(ctx, bookID, CoverPathPrefix+result.FileName, result.BlurHash); err != nil {
		s.logger.Error("failed to record cover",
			"book_id", bookID,
			"error", err)
		return
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("failed to reload book after cover download",
			"book_id", bookID,
			"error", err)
		return
	}
	s.events.Emit(sse.NewBookUpdatedEvent(book))
}

// Wait blocks until background cover downloads have finished.
func (s *BookService) Wait() {
	s.wg.Wait()
}

// GetBook returns a catalog entry.
func (s *BookService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	if err := requireBookID(id); err != nil {
		return nil, err
	}
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, fromStore(err, "book")
	}
	return book, nil
}

// ListBooks returns a page of the catalog, newest first.
func (s *BookService) ListBooks(ctx context.Context, bookType domain.BookType, page store.Page) (store.Result[*domain.Book], error) {
	result, err := s.store.ListBooks(ctx, bookType, page)
	if err != nil {
		return result, fromStore(err, "books")
	}
	return result, nil
}

// SearchBooks finds books through the full-text index, falling back to the
// SQL pattern match when no index is configured or the index fails. The page
// is sorted naturally. An empty query lists the catalog.
func (s *BookService) SearchBooks(ctx context.Context, query string, bookType domain.BookType, page store.Page) (store.Result[*domain.Book], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListBooks(ctx, bookType, page)
	}
	page = page.Normalize()

	if s.searcher != nil {
		result, err := s.searchIndex(ctx, query, bookType, page)
		if err == nil {
			return result, nil
		}
		s.logger.Warn("search index failed, falling back to SQL",
			"query", query,
			"error", err)
	}

	result, err := s.store.SearchBooks(ctx, query, bookType, page)
	if err != nil {
		return result, fromStore(err, "books")
	}
	s.sorter.Books(result.Items)
	return result, nil
}

func (s *BookService) searchIndex(ctx context.Context, query string, bookType domain.BookType, page store.Page) (store.Result[*domain.Book], error) {
	hits, err := s.searcher.Search(ctx, search.SearchParams{
		Query:  query,
		Type:   string(bookType),
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		return store.Result[*domain.Book]{}, err
	}

	byID, err := s.store.GetBooksByIDs(ctx, hits.BookIDs)
	if err != nil {
		return store.Result[*domain.Book]{}, err
	}

	// Hits whose book has been removed since indexing are skipped.
	books := make([]*domain.Book, 0, len(hits.BookIDs))
	for _, id := range hits.BookIDs {
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}
	s.sorter.Books(books)
	return store.NewResult(books, int(hits.Total), page), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
