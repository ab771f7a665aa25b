package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testBooks() []*domain.Book {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.Book{
		{ID: 1, Title: "Dune", Authors: []string{"Frank Herbert"}, Type: domain.BookTypeRoman, ISBN13: "978-0-441-17271-9", CreatedAt: now},
		{ID: 2, Title: "Astérix le Gaulois", Authors: []string{"René Goscinny", "Albert Uderzo"}, Type: domain.BookTypeBD, CreatedAt: now.Add(time.Hour)},
		{ID: 3, Title: "Akira", Authors: []string{"Katsuhiro Otomo"}, Type: domain.BookTypeManga, Description: "Neo-Tokyo after the war", CreatedAt: now.Add(2 * time.Hour)},
	}
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexAndSearch(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexBooks(testBooks()))

	tests := []struct {
		name  string
		query string
		want  int64
	}{
		{"title", "dune", 1},
		{"folded accents", "asterix", 2},
		{"author", "goscinny", 2},
		{"description", "tokyo", 3},
		{"isbn with separators", "9780441172719", 1},
		{"typo", "dume", 1},
		{"prefix", "aki", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(ctx, SearchParams{Query: tt.query})
			require.NoError(t, err)
			require.NotEmpty(t, res.BookIDs)
			assert.Equal(t, tt.want, res.BookIDs[0])
		})
	}
}

func TestSearchIndex_TypeFilter(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexBooks(testBooks()))

	res, err := index.Search(ctx, SearchParams{Type: string(domain.BookTypeManga)})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, res.BookIDs)

	res, err = index.Search(ctx, SearchParams{Query: "dune", Type: string(domain.BookTypeManga)})
	require.NoError(t, err)
	assert.Empty(t, res.BookIDs)
}

func TestSearchIndex_MatchAllNewestFirst(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBooks(testBooks()))

	res, err := index.Search(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, []int64{3, 2, 1}, res.BookIDs)
}

func TestSearchIndex_DeleteBook(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexBook(ctx, testBooks()[0]))
	require.NoError(t, index.DeleteBook(ctx, 1))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBooks(testBooks()))
	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()
	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexBook(context.Background(), testBooks()[0]))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestBookToDocument(t *testing.T) {
	doc := BookToDocument(&domain.Book{
		ID:      9,
		Title:   "L'Étranger",
		Authors: []string{"Albert Camus"},
		ISBN10:  "2-07-036002-X",
	})

	assert.Equal(t, "9", doc.ID)
	assert.Equal(t, "l'etranger", doc.Title)
	assert.Equal(t, []string{"207036002X"}, doc.ISBNs)
	assert.Equal(t, string(domain.BookTypeUnknown), doc.Type)
}
