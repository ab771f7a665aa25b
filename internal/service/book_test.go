package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/media/covers"
	"github.com/listenupapp/readup-server/internal/search"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
)

type stubSearcher struct {
	result *search.SearchResult
	err    error
	params search.SearchParams
}

func (s *stubSearcher) Search(_ context.Context, params search.SearchParams) (*search.SearchResult, error) {
	s.params = params
	return s.result, s.err
}

type stubCovers struct {
	result *covers.Result
	err    error
}

func (s *stubCovers) Download(context.Context, int64, string, string) (*covers.Result, error) {
	return s.result, s.err
}

func (e *testEnv) books(searcher BookSearcher, fetcher CoverFetcher) *BookService {
	return NewBookService(e.store, searcher, fetcher, e.events, e.sorter, e.validator, e.logger)
}

func TestCreateBook_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := env.books(nil, nil)

	_, err := svc.CreateBook(context.Background(), "u1", false, CreateBookInput{Title: "Dune"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = svc.CreateBook(context.Background(), "", true, CreateBookInput{Title: "Dune"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestCreateBook_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.books(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateBookInput
	}{
		{"missing title", CreateBookInput{Title: "   "}},
		{"bad type", CreateBookInput{Title: "Dune", Type: "poetry"}},
		{"bad isbn", CreateBookInput{Title: "Dune", ISBN13: "123"}},
		{"negative pages", CreateBookInput{Title: "Dune", Pages: -1}},
		{"bad cover url", CreateBookInput{Title: "Dune", CoverURL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBook(ctx, "admin", true, tt.input)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
		})
	}
}

func TestCreateBook_ConvertsDescription(t *testing.T) {
	env := newTestEnv(t)
	svc := env.books(nil, nil)

	book, err := svc.CreateBook(context.Background(), "admin", true, CreateBookInput{
		Title:       " Dune ",
		Description: "<p><strong>Bold</strong> start</p>",
		Authors:     []string{" Frank Herbert ", ""},
		Type:        "roman",
	})
	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "**Bold** start", book.Description)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	assert.Equal(t, domain.BookTypeRoman, book.Type)
	assert.Equal(t, []sse.EventType{sse.EventBookCreated}, env.events.types())
}

func TestCreateBook_FetchesCover(t *testing.T) {
	env := newTestEnv(t)
	fetcher := &stubCovers{result: &covers.Result{FileName: "1-dune.jpg", BlurHash: "LEHV6nWB2yk8"}}
	svc := env.books(nil, fetcher)
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, "admin", true, CreateBookInput{
		Title:    "Dune",
		CoverURL: "https://covers.example.com/dune.jpg",
	})
	require.NoError(t, err)
	svc.Wait()

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, CoverPathPrefix+"1-dune.jpg", stored.CoverURL)
	assert.Equal(t, "LEHV6nWB2yk8", stored.CoverBlurHash)
	assert.Contains(t, env.events.types(), sse.EventBookUpdated)
}

func TestCreateBook_CoverFailureKeepsRemoteURL(t *testing.T) {
	env := newTestEnv(t)
	svc := env.books(nil, &stubCovers{err: errors.New("boom")})
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, "admin", true, CreateBookInput{
		Title:    "Dune",
		CoverURL: "https://covers.example.com/dune.jpg",
	})
	require.NoError(t, err)
	svc.Wait()

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://covers.example.com/dune.jpg", stored.CoverURL)
}

func TestGetBook_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.books(nil, nil).GetBook(context.Background(), 42)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestSearchBooks_UsesIndexAndSortsNaturally(t *testing.T) {
	env := newTestEnv(t)
	long := env.seedBook(t, "Zadig", 100, "Voltaire", "Someone Else")
	short := env.seedBook(t, "Candide", 100, "Voltaire")

	searcher := &stubSearcher{result: &search.SearchResult{Total: 3, BookIDs: []int64{long, 999, short}}}
	svc := env.books(searcher, nil)

	result, err := svc.SearchBooks(context.Background(), "voltaire", domain.BookTypeRoman, store.Page{Number: 2, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, "voltaire", searcher.params.Query)
	assert.Equal(t, "roman", searcher.params.Type)
	assert.Equal(t, 5, searcher.params.Offset)

	require.Len(t, result.Items, 2)
	assert.Equal(t, short, result.Items[0].ID)
	assert.Equal(t, long, result.Items[1].ID)
	assert.Equal(t, 3, result.Total)
}

func TestSearchBooks_FallsBackToSQL(t *testing.T) {
	env := newTestEnv(t)
	dune := env.seedBook(t, "Dune", 600, "Frank Herbert")
	env.seedBook(t, "Emma", 300, "Jane Austen")

	svc := env.books(&stubSearcher{err: errors.New("index closed")}, nil)
	result, err := svc.SearchBooks(context.Background(), "herbert", "", store.Page{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, dune, result.Items[0].ID)
}

func TestSearchBooks_EmptyQueryLists(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "Dune", 600)
	env.seedBook(t, "Emma", 300)

	searcher := &stubSearcher{err: errors.New("must not be called")}
	result, err := env.books(searcher, nil).SearchBooks(context.Background(), "  ", "", store.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Empty(t, searcher.params.Query)
}
