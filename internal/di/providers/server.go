package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/api"
	"github.com/listenupapp/readup-server/internal/auth"
	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/logger"
	"github.com/listenupapp/readup-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	storages := do.MustInvoke[*ImageStorages](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Profile:        do.MustInvoke[*service.ProfileService](i),
		Book:           do.MustInvoke[*BookServiceHandle](i).BookService,
		Shelf:          do.MustInvoke[*service.ShelfService](i),
		Favorite:       do.MustInvoke[*service.FavoriteService](i),
		ReadingSession: do.MustInvoke[*service.ReadingSessionService](i),
		Stats:          do.MustInvoke[*service.StatsService](i),
	}

	handler := api.NewServer(api.Dependencies{
		Config:     cfg,
		Services:   services,
		Storage:    &api.StorageServices{Covers: storages.Covers},
		Tokens:     tokens,
		DB:         storeHandle.Store,
		Index:      indexHandle.SearchIndex,
		SSEManager: sseHandle.Manager,
		Logger:     log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
