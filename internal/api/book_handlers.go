package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List or search books",
		Description: "Returns a page of the catalog. With q, searches titles, authors, publishers, descriptions and ISBNs",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the catalog (admin only). The cover is downloaded in the background",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a catalog entry with the viewer's shelf row",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)
}

// === DTOs ===

// PageParams selects a page of a listing.
type PageParams struct {
	Page int `query:"page" default:"1" minimum:"1" doc:"Page number, starting at 1"`
	Size int `query:"size" default:"20" minimum:"1" maximum:"100" doc:"Items per page"`
}

func (p PageParams) page() store.Page {
	return store.Page{Number: p.Page, Size: p.Size}.Normalize()
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	PageParams
	Query string `query:"q" maxLength:"200" doc:"Search query"`
	Type  string `query:"type" doc:"Restrict to a book type"`
}

// BookPageOutput wraps a page of books for Huma.
type BookPageOutput struct {
	Body store.Result[*domain.Book]
}

// CreateBookInput contains the new catalog entry.
type CreateBookInput struct {
	Body service.CreateBookInput
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BookIDInput selects a book by ID.
type BookIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Book ID"`
}

// BookDetailResponse is a book with the viewer's shelf row.
type BookDetailResponse struct {
	Book     *domain.Book     `json:"book" doc:"Catalog entry"`
	UserBook *domain.UserBook `json:"user_book,omitempty" doc:"Viewer's row, absent when the book is on none of their shelves"`
}

// BookDetailOutput wraps a book detail for Huma.
type BookDetailOutput struct {
	Body BookDetailResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookPageOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	bookType, err := parseBookType(input.Type)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Book.SearchBooks(ctx, input.Query, bookType, input.page())
	if err != nil {
		return nil, err
	}
	return &BookPageOutput{Body: result}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	v, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.CreateBook(ctx, v.ID, v.IsAdmin, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookDetailOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	ub, err := s.services.Shelf.GetUserBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookDetailOutput{Body: BookDetailResponse{Book: book, UserBook: ub}}, nil
}

// parseBookType accepts an empty type as "any".
func parseBookType(raw string) (domain.BookType, error) {
	if raw == "" {
		return "", nil
	}
	t := domain.BookType(raw)
	if !t.Valid() {
		return "", domainerrors.Validationf("unknown book type %q", raw)
	}
	return t, nil
}
