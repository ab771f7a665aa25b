package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
)

// FavoriteService guards the favorite flag: only read books qualify and a
// user holds at most domain.MaxFavorites of them.
type FavoriteService struct {
	store  *sqlite.Store
	events store.EventEmitter
	cache  ViewCache
	logger *slog.Logger
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(store *sqlite.Store, events store.EventEmitter, cache ViewCache, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		store:  store,
		events: events,
		cache:  cache,
		logger: logger,
	}
}

// ToggleFavorite flips the favorite flag from currentlyFavorite and returns
// the new value. Unfavoriting always succeeds. Favoriting fails with
// INVALID_STATE unless the book is read, and with LIMIT_EXCEEDED when the
// user already holds the maximum.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, uid string, bookID int64, currentlyFavorite bool) (bool, error) {
	if err := requireUser(uid); err != nil {
		return currentlyFavorite, err
	}
	if err := requireBookID(bookID); err != nil {
		return currentlyFavorite, err
	}

	favorite := !currentlyFavorite
	if err := s.store.SetFavorite(ctx, uid, bookID, favorite); err != nil {
		switch {
		case errors.Is(err, store.ErrFavoriteLimit):
			s.logger.Info("favorite limit reached",
				"user_id", uid,
				"book_id", bookID)
			return currentlyFavorite, domainerrors.LimitExceeded(
				fmt.Sprintf("at most %d books can be favorites", domain.MaxFavorites), domain.MaxFavorites)
		case errors.Is(err, store.ErrInvalidState):
			return currentlyFavorite, domainerrors.InvalidState("only read books can be favorites")
		default:
			return currentlyFavorite, fromStore(err, "book")
		}
	}

	invalidateViews(s.cache, s.logger, uid)
	s.events.Emit(sse.NewFavoriteChangedEvent(uid, bookID, favorite))
	return favorite, nil
}

// CountFavorites returns how many favorites the user holds.
func (s *FavoriteService) CountFavorites(ctx context.Context, uid string) (int, error) {
	if err := requireUser(uid); err != nil {
		return 0, err
	}
	n, err := s.store.CountFavorites(ctx, uid)
	if err != nil {
		return 0, fromStore(err, "favorites")
	}
	return n, nil
}
