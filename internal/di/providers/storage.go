package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/logger"
	"github.com/listenupapp/readup-server/internal/media/covers"
	"github.com/listenupapp/readup-server/internal/media/images"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/viewcache"
)

// ImageStorages groups all image storage services.
type ImageStorages struct {
	Covers *images.Storage
}

// ProvideImageStorages provides all image storage services.
func ProvideImageStorages(i do.Injector) (*ImageStorages, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	coverStorage, err := images.NewStorage(cfg.Data.BasePath, "covers")
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	log.Info("Image storages initialized", "covers", coverStorage.Dir())

	return &ImageStorages{Covers: coverStorage}, nil
}

// ProvideCoverDownloader provides the remote cover downloader.
func ProvideCoverDownloader(i do.Injector) (*covers.Downloader, error) {
	storages := do.MustInvoke[*ImageStorages](i)
	log := do.MustInvoke[*logger.Logger](i)

	return covers.NewDownloader(storages.Covers, log.Logger), nil
}

// ViewCacheHandle wraps the computed-view cache with shutdown capability.
// Cache is nil when caching is disabled.
type ViewCacheHandle struct {
	Cache *viewcache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *ViewCacheHandle) Shutdown() error {
	if h.Cache == nil {
		return nil
	}
	return h.Cache.Close()
}

// Views returns the cache to hand to services.
func (h *ViewCacheHandle) Views() service.ViewCache {
	if h.Cache == nil {
		return viewcache.Disabled{}
	}
	return h.Cache
}

// ProvideViewCache provides the Badger-backed view cache.
func ProvideViewCache(i do.Injector) (*ViewCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Cache.Enabled {
		log.Info("View cache disabled")
		return &ViewCacheHandle{}, nil
	}

	cache, err := viewcache.Open(viewcache.Options{
		Path:   cfg.Data.CachePath(),
		TTL:    cfg.Cache.TTL,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("view cache: %w", err)
	}

	return &ViewCacheHandle{Cache: cache}, nil
}
