package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
)

// ShelfService moves books between a user's shelves and lists them.
type ShelfService struct {
	store  *sqlite.Store
	events store.EventEmitter
	cache  ViewCache
	sorter *normalize.Sorter
	logger *slog.Logger
	now    func() time.Time
}

// NewShelfService creates a new shelf service.
func NewShelfService(store *sqlite.Store, events store.EventEmitter, cache ViewCache, sorter *normalize.Sorter, logger *slog.Logger) *ShelfService {
	return &ShelfService{
		store:  store,
		events: events,
		cache:  cache,
		sorter: sorter,
		logger: logger,
		now:    time.Now,
	}
}

// current returns the stored state of the book for uid, nil without a row.
func (s *ShelfService) current(ctx context.Context, uid string, bookID int64) (*domain.UserBook, error) {
	ub, err := s.store.GetUserBook(ctx, uid, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fromStore(err, "book")
	}
	return ub, nil
}

// GetUserBook returns the viewer's row for a book, nil when the book is on
// none of their shelves.
func (s *ShelfService) GetUserBook(ctx context.Context, uid string, bookID int64) (*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	if err := requireBookID(bookID); err != nil {
		return nil, err
	}
	return s.current(ctx, uid, bookID)
}

// Preview tells the caller whether moving the book to target needs a date
// and which column it lands in.
func (s *ShelfService) Preview(ctx context.Context, uid string, bookID int64, target *domain.State) (domain.Policy, error) {
	if err := requireUser(uid); err != nil {
		return domain.Policy{}, err
	}
	if err := requireBookID(bookID); err != nil {
		return domain.Policy{}, err
	}

	ub, err := s.current(ctx, uid, bookID)
	if err != nil {
		return domain.Policy{}, err
	}
	return domain.PolicyFor(ub.StatePtr(), target), nil
}

// SetState moves the book to target, or removes it from every shelf when
// target is nil. captured is the user supplied date for targets that need one.
// Returns the stored row, nil after a removal.
func (s *ShelfService) SetState(ctx context.Context, uid string, bookID int64, target *domain.State, captured *time.Time) (*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	if err := requireBookID(bookID); err != nil {
		return nil, err
	}

	ub, err := s.current(ctx, uid, bookID)
	if err != nil {
		return nil, err
	}
	previous := ub.StatePtr()

	if target == nil && previous == nil {
		return nil, nil
	}

	updates, err := domain.Plan(previous, target, captured, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpsertBookState(ctx, uid, bookID, target, updates)
	if err != nil {
		return nil, fromStore(err, "book")
	}

	invalidateViews(s.cache, s.logger, uid)
	s.events.Emit(sse.NewShelfChangedEvent(uid, bookID, previous, target, updated))

	s.logger.Info("shelf state changed",
		"user_id", uid,
		"book_id", bookID,
		"from", domain.StateName(previous),
		"to", domain.StateName(target))

	return updated, nil
}

// UpdateProgress sets the current page of a book being read.
func (s *ShelfService) UpdateProgress(ctx context.Context, uid string, bookID int64, page int) error {
	if err := requireUser(uid); err != nil {
		return err
	}
	if err := requireBookID(bookID); err != nil {
		return err
	}
	if page < 0 {
		return domainerrors.ValidationWithDetails("invalid page",
			map[string]string{"current_page": "must be greater than or equal to 0"})
	}

	if err := s.store.SetCurrentPage(ctx, uid, bookID, page); err != nil {
		return fromStore(err, "book")
	}

	invalidateViews(s.cache, s.logger, uid)
	s.events.Emit(sse.NewProgressChangedEvent(uid, bookID, page))
	return nil
}

// ListShelf returns one page of the books on a shelf, newest first.
func (s *ShelfService) ListShelf(ctx context.Context, uid string, state domain.State, title string, page store.Page) (store.Result[*domain.UserBook], error) {
	if err := requireUser(uid); err != nil {
		return store.Result[*domain.UserBook]{}, err
	}
	result, err := s.store.ListUserBooksByState(ctx, uid, state, title, page)
	if err != nil {
		return result, fromStore(err, "shelf")
	}
	return result, nil
}

// ListUserBooks returns every book of the user on any shelf, naturally sorted.
func (s *ShelfService) ListUserBooks(ctx context.Context, uid, title string) ([]*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	rows, err := s.store.ListUserBooks(ctx, uid, title)
	if err != nil {
		return nil, fromStore(err, "books")
	}
	s.sorter.UserBooks(rows)
	return nonNil(rows), nil
}

// ListFavorites returns the user's favorite books, naturally sorted.
func (s *ShelfService) ListFavorites(ctx context.Context, uid, title string) ([]*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	rows, err := s.store.ListFavoriteUserBooks(ctx, uid, title)
	if err != nil {
		return nil, fromStore(err, "favorites")
	}
	s.sorter.UserBooks(rows)
	return nonNil(rows), nil
}

// ListReading returns the books the user is reading now, naturally sorted.
func (s *ShelfService) ListReading(ctx context.Context, uid string) ([]*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	rows, err := s.store.ListUserBooksWithState(ctx, uid, domain.StateReading)
	if err != nil {
		return nil, fromStore(err, "books")
	}
	s.sorter.UserBooks(rows)
	return nonNil(rows), nil
}

// Lookup returns the viewer's rows for the displayed books, keyed by book id.
// Books on none of the viewer's shelves are absent from the map.
func (s *ShelfService) Lookup(ctx context.Context, uid string, bookIDs []int64) (map[int64]*domain.UserBook, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	rows, err := s.store.ListUserBooksForBooks(ctx, uid, bookIDs)
	if err != nil {
		return nil, fromStore(err, "books")
	}
	return rows, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
