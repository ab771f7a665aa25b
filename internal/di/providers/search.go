package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/logger"
	"github.com/listenupapp/readup-server/internal/search"
)

// reindexBatchSize bounds how many books are held in memory per batch.
const reindexBatchSize = 500

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index and wires it to the
// store so catalog writes keep it current.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from the catalog in
// the background. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	go func() {
		ctx := context.Background()
		batch := make([]*domain.Book, 0, reindexBatchSize)
		total := 0

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := indexHandle.IndexBooks(batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
			return nil
		}

		err := storeHandle.AllBooks(ctx, func(b *domain.Book) error {
			batch = append(batch, b)
			if len(batch) == reindexBatchSize {
				return flush()
			}
			return nil
		})
		if err == nil {
			err = flush()
		}
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		if total > 0 {
			log.Info("Initial search reindex completed", "documents", total)
		}
	}()
}
