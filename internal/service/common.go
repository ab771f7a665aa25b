package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/store"
)

// ViewCache stores derived per-user views. Both *viewcache.Cache and
// viewcache.Disabled satisfy it.
type ViewCache interface {
	Get(key string, dest any) (bool, error)
	// Generation and SetIfCurrent keep a view computed before a concurrent
	// InvalidateUser from being stored.
	Generation(uid string) (uint64, error)
	SetIfCurrent(uid string, gen uint64, key string, value any) (bool, error)
	InvalidateUser(uid string) error
}

// requireUser fails with UNAUTHORIZED when no user is authenticated.
func requireUser(uid string) error {
	if uid == "" {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

func requireBookID(bookID int64) error {
	if bookID <= 0 {
		return domainerrors.ValidationWithDetails("invalid book id",
			map[string]string{"book_id": "must be greater than 0"})
	}
	return nil
}

// fromStore translates store sentinels into domain errors. what names the
// missing resource in NOT_FOUND messages.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}

	var derr *domainerrors.Error
	if errors.As(err, &derr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := ""
	var serr *store.Error
	if errors.As(err, &serr) {
		msg = serr.Message
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(what + " not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(what + " already exists")
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(msg)
	case errors.Is(err, store.ErrForbidden):
		return domainerrors.Forbidden(msg)
	case errors.Is(err, store.ErrFavoriteLimit):
		return domainerrors.LimitExceeded("favorite limit reached", domain.MaxFavorites)
	case errors.Is(err, store.ErrInvalidState):
		return domainerrors.InvalidState(msg)
	default:
		return domainerrors.Database(err)
	}
}

// invalidateViews drops the cached views of uid. Failures are logged; the
// entries still expire with the cache TTL.
func invalidateViews(cache ViewCache, logger *slog.Logger, uid string) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateUser(uid); err != nil {
		logger.Warn("failed to invalidate view cache",
			"user_id", uid,
			"error", err)
	}
}
