package api

import (
	"github.com/listenupapp/readup-server/internal/media/images"
	"github.com/listenupapp/readup-server/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Profile        *service.ProfileService
	Book           *service.BookService
	Shelf          *service.ShelfService
	Favorite       *service.FavoriteService
	ReadingSession *service.ReadingSessionService
	Stats          *service.StatsService
}

// StorageServices groups file storage handlers used by the API server.
type StorageServices struct {
	Covers *images.Storage // Book cover images
}
