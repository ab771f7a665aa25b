package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/store"
)

// maxLookupIDs bounds the books resolved by one lookup.
const maxLookupIDs = 100

func (s *Server) registerUserBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMyBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/books",
		Summary:     "List my books",
		Description: "Returns every book on any of the viewer's shelves",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMyBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupMyBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/books/lookup",
		Summary:     "Look up my rows",
		Description: "Returns the viewer's rows for a list of displayed books",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLookupMyBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/shelves/{state}",
		Summary:     "List shelf",
		Description: "Returns a page of the books on one shelf, most recently changed first",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/favorites",
		Summary:     "List favorites",
		Description: "Returns the viewer's favorite books",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReading",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/reading",
		Summary:     "List books being read",
		Description: "Returns the books the viewer is reading now",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookState",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/books/{id}/state",
		Summary:     "Get book state",
		Description: "Returns the viewer's row for a book, null when it is on no shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBookState)

	huma.Register(s.api, huma.Operation{
		OperationID: "previewTransition",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/books/{id}/transition",
		Summary:     "Preview state change",
		Description: "Tells whether moving the book to a state needs a date and which column receives it",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePreviewTransition)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookState",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/books/{id}/state",
		Summary:     "Set book state",
		Description: "Moves the book to a shelf. A null state removes it from every shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetBookState)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/books/{id}/progress",
		Summary:     "Update progress",
		Description: "Sets the current page of a book being read",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "setFavorite",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/books/{id}/favorite",
		Summary:     "Set favorite",
		Description: "Marks or unmarks a read book as favorite",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetFavorite)
}

// === DTOs ===

// TitleFilterInput filters listings by title.
type TitleFilterInput struct {
	Query string `query:"q" maxLength:"200" doc:"Title filter"`
}

// UserBookListResponse contains a list of rows.
type UserBookListResponse struct {
	Items []*domain.UserBook `json:"items" doc:"Rows with their books"`
}

// UserBookListOutput wraps a list of rows for Huma.
type UserBookListOutput struct {
	Body UserBookListResponse
}

// LookupInput lists displayed books.
type LookupInput struct {
	IDs string `query:"ids" doc:"Comma-separated book IDs"`
}

// ListShelfInput contains parameters for listing a shelf.
type ListShelfInput struct {
	PageParams
	State string `path:"state" enum:"wishlist,later,reading,read" doc:"Shelf"`
	Query string `query:"q" maxLength:"200" doc:"Title filter"`
}

// UserBookPageOutput wraps a page of rows for Huma.
type UserBookPageOutput struct {
	Body store.Result[*domain.UserBook]
}

// UserBookStateResponse holds the viewer's row, null when there is none.
type UserBookStateResponse struct {
	UserBook *domain.UserBook `json:"user_book" doc:"Row, null when the book is on no shelf"`
}

// UserBookStateOutput wraps a row for Huma.
type UserBookStateOutput struct {
	Body UserBookStateResponse
}

// PreviewTransitionInput selects the target of a state change.
type PreviewTransitionInput struct {
	ID    int64  `path:"id" minimum:"1" doc:"Book ID"`
	State string `query:"state" doc:"Target state; empty or none removes"`
}

// TransitionPreviewResponse describes what a state change writes.
type TransitionPreviewResponse struct {
	From        string        `json:"from" doc:"Current state or none"`
	To          string        `json:"to" doc:"Target state or none"`
	NeedsPrompt bool          `json:"needs_prompt" doc:"Whether a date must be captured"`
	Column      domain.Column `json:"column,omitempty" doc:"Column receiving the date"`
	ExitColumn  domain.Column `json:"exit_column,omitempty" doc:"Column closing the previous interval"`
}

// TransitionPreviewOutput wraps a preview for Huma.
type TransitionPreviewOutput struct {
	Body TransitionPreviewResponse
}

// SetStateRequest is a state change.
type SetStateRequest struct {
	State *string   `json:"state" nullable:"true" doc:"Target state; null removes the book from every shelf"`
	Date  *FlexTime `json:"date,omitempty" doc:"Date captured from the user when the transition asks for one"`
}

// SetStateInput contains parameters for a state change.
type SetStateInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Book ID"`
	Body SetStateRequest
}

// UpdateProgressInput contains the new current page.
type UpdateProgressInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Book ID"`
	Body struct {
		Page int `json:"page" minimum:"0" doc:"Current page"`
	}
}

// ProgressResponse echoes the stored progress.
type ProgressResponse struct {
	BookID      int64 `json:"book_id" doc:"Book ID"`
	CurrentPage int   `json:"current_page" doc:"Current page"`
}

// ProgressOutput wraps progress for Huma.
type ProgressOutput struct {
	Body ProgressResponse
}

// SetFavoriteInput contains the desired favorite flag.
type SetFavoriteInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Book ID"`
	Body struct {
		Favorite bool `json:"favorite" doc:"Desired favorite flag"`
	}
}

// FavoriteResponse echoes the stored favorite flag.
type FavoriteResponse struct {
	BookID     int64 `json:"book_id" doc:"Book ID"`
	IsFavorite bool  `json:"is_favorite" doc:"Stored favorite flag"`
}

// FavoriteOutput wraps a favorite flag for Huma.
type FavoriteOutput struct {
	Body FavoriteResponse
}

// === Handlers ===

func (s *Server) handleListMyBooks(ctx context.Context, input *TitleFilterInput) (*UserBookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.services.Shelf.ListUserBooks(ctx, userID, input.Query)
	if err != nil {
		return nil, err
	}
	return &UserBookListOutput{Body: UserBookListResponse{Items: rows}}, nil
}

func (s *Server) handleLookupMyBooks(ctx context.Context, input *LookupInput) (*UserBookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := parseIDList(input.IDs)
	if err != nil {
		return nil, err
	}

	rows, err := s.services.Shelf.Lookup(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.UserBook, 0, len(rows))
	for _, id := range ids {
		if ub, ok := rows[id]; ok {
			items = append(items, ub)
		}
	}
	return &UserBookListOutput{Body: UserBookListResponse{Items: items}}, nil
}

func (s *Server) handleListShelf(ctx context.Context, input *ListShelfInput) (*UserBookPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	state, err := domain.ParseState(input.State)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Shelf.ListShelf(ctx, userID, state, input.Query, input.page())
	if err != nil {
		return nil, err
	}
	return &UserBookPageOutput{Body: result}, nil
}

func (s *Server) handleListFavorites(ctx context.Context, input *TitleFilterInput) (*UserBookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.services.Shelf.ListFavorites(ctx, userID, input.Query)
	if err != nil {
		return nil, err
	}
	return &UserBookListOutput{Body: UserBookListResponse{Items: rows}}, nil
}

func (s *Server) handleListReading(ctx context.Context, _ *struct{}) (*UserBookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.services.Shelf.ListReading(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserBookListOutput{Body: UserBookListResponse{Items: rows}}, nil
}

func (s *Server) handleGetBookState(ctx context.Context, input *BookIDInput) (*UserBookStateOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ub, err := s.services.Shelf.GetUserBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserBookStateOutput{Body: UserBookStateResponse{UserBook: ub}}, nil
}

func (s *Server) handlePreviewTransition(ctx context.Context, input *PreviewTransitionInput) (*TransitionPreviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	target, err := domain.ParseOptionalState(input.State)
	if err != nil {
		return nil, err
	}

	current, err := s.services.Shelf.GetUserBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	policy := domain.PolicyFor(current.StatePtr(), target)

	return &TransitionPreviewOutput{Body: TransitionPreviewResponse{
		From:        domain.StateName(current.StatePtr()),
		To:          domain.StateName(target),
		NeedsPrompt: policy.NeedsPrompt,
		Column:      policy.Column,
		ExitColumn:  policy.Exit,
	}}, nil
}

func (s *Server) handleSetBookState(ctx context.Context, input *SetStateInput) (*UserBookStateOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var target *domain.State
	if input.Body.State != nil {
		state, err := domain.ParseState(*input.Body.State)
		if err != nil {
			return nil, err
		}
		target = &state
	}

	ub, err := s.services.Shelf.SetState(ctx, userID, input.ID, target, timePtr(input.Body.Date))
	if err != nil {
		return nil, err
	}
	return &UserBookStateOutput{Body: UserBookStateResponse{UserBook: ub}}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Shelf.UpdateProgress(ctx, userID, input.ID, input.Body.Page); err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: ProgressResponse{BookID: input.ID, CurrentPage: input.Body.Page}}, nil
}

func (s *Server) handleSetFavorite(ctx context.Context, input *SetFavoriteInput) (*FavoriteOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	favorite, err := s.services.Favorite.ToggleFavorite(ctx, userID, input.ID, !input.Body.Favorite)
	if err != nil {
		return nil, err
	}
	return &FavoriteOutput{Body: FavoriteResponse{BookID: input.ID, IsFavorite: favorite}}, nil
}

// parseIDList parses "1,2,3" into book IDs, skipping blanks and duplicates.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, domainerrors.ValidationWithDetails("invalid book id",
				map[string]string{"ids": part})
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) > maxLookupIDs {
		return nil, domainerrors.Validationf("at most %d ids can be looked up at once", maxLookupIDs)
	}
	return ids, nil
}
