package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/logger"
	"github.com/listenupapp/readup-server/internal/media/covers"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/validation"
)

// ProvideSorter provides the locale-aware title collator.
func ProvideSorter(i do.Injector) (*normalize.Sorter, error) {
	return normalize.NewSorter(sortLocale), nil
}

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideStatsService provides the statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*ViewCacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle.Store, cacheHandle.Views(), log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	statsService := do.MustInvoke[*service.StatsService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	sorter := do.MustInvoke[*normalize.Sorter](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, statsService, sseHandle.Manager, sorter, validator, log.Logger), nil
}

// BookServiceHandle wraps the book service so shutdown waits for cover downloads.
type BookServiceHandle struct {
	*service.BookService
}

// Shutdown implements do.Shutdownable.
func (h *BookServiceHandle) Shutdown() error {
	h.Wait()
	return nil
}

// ProvideBookService provides the catalog service.
func ProvideBookService(i do.Injector) (*BookServiceHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	downloader := do.MustInvoke[*covers.Downloader](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	sorter := do.MustInvoke[*normalize.Sorter](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewBookService(
		storeHandle.Store,
		indexHandle.SearchIndex,
		downloader,
		sseHandle.Manager,
		sorter,
		validator,
		log.Logger,
	)
	return &BookServiceHandle{BookService: svc}, nil
}

// ProvideShelfService provides the shelf service.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	cacheHandle := do.MustInvoke[*ViewCacheHandle](i)
	sorter := do.MustInvoke[*normalize.Sorter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShelfService(storeHandle.Store, sseHandle.Manager, cacheHandle.Views(), sorter, log.Logger), nil
}

// ProvideFavoriteService provides the favorites service.
func ProvideFavoriteService(i do.Injector) (*service.FavoriteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	cacheHandle := do.MustInvoke[*ViewCacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFavoriteService(storeHandle.Store, sseHandle.Manager, cacheHandle.Views(), log.Logger), nil
}

// ProvideReadingSessionService provides the reading session service.
func ProvideReadingSessionService(i do.Injector) (*service.ReadingSessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	cacheHandle := do.MustInvoke[*ViewCacheHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReadingSessionService(storeHandle.Store, sseHandle.Manager, cacheHandle.Views(), validator, log.Logger), nil
}
