// Package di provides dependency injection configuration for the ReadUp server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/auth"
	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/di/providers"
	"github.com/listenupapp/readup-server/internal/logger"
	"github.com/listenupapp/readup-server/internal/media/covers"
	"github.com/listenupapp/readup-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideSorter)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideViewCache)

	// Storage layer
	do.Provide(injector, providers.ProvideImageStorages)
	do.Provide(injector, providers.ProvideCoverDownloader)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideShelfService)
	do.Provide(injector, providers.ProvideFavoriteService)
	do.Provide(injector, providers.ProvideReadingSessionService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ViewCacheHandle](injector)
	_ = do.MustInvoke[*providers.ImageStorages](injector)
	_ = do.MustInvoke[*covers.Downloader](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*providers.BookServiceHandle](injector)
	_ = do.MustInvoke[*service.ShelfService](injector)
	_ = do.MustInvoke[*service.FavoriteService](injector)
	_ = do.MustInvoke[*service.ReadingSessionService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
