package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/listenupapp/readup-server/internal/normalize"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query
	Type  string // Book type filter (empty = all)

	// Pagination
	Limit  int
	Offset int
}

// SearchResult contains the matching book IDs in relevance order.
type SearchResult struct {
	Query   string  `json:"query"`
	Total   uint64  `json:"total"`
	TookMs  int64   `json:"took_ms"`
	BookIDs []int64 `json:"book_ids"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.Query == "" {
		searchRequest.SortBy([]string{"-created_at"})
	} else {
		searchRequest.SortBy([]string{"-_score", "-created_at"})
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:   params.Query,
		Total:   searchResult.Total,
		TookMs:  searchResult.Took.Milliseconds(),
		BookIDs: make([]int64, 0, len(searchResult.Hits)),
	}
	for _, hit := range searchResult.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with invalid id", "id", hit.ID)
			continue
		}
		result.BookIDs = append(result.BookIDs, id)
	}
	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := normalize.Fold(params.Query); q != "" {
		textQueries := []query.Query{}

		// Title match with highest boost
		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)
		textQueries = append(textQueries, authorMatch)

		for _, field := range []string{"publisher", "categories"} {
			m := bleve.NewMatchQuery(q)
			m.SetField(field)
			textQueries = append(textQueries, m)
		}

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)
		textQueries = append(textQueries, descMatch)

		if isbn := normalizeISBN(q); len(isbn) == 10 || len(isbn) == 13 {
			isbnQuery := bleve.NewTermQuery(isbn)
			isbnQuery.SetField("isbn")
			isbnQuery.SetBoost(5.0)
			textQueries = append(textQueries, isbnQuery)
		}

		// Typo tolerance and autocomplete on single words
		if !strings.Contains(q, " ") {
			fuzzyQuery := bleve.NewFuzzyQuery(q)
			fuzzyQuery.SetFuzziness(1)
			fuzzyQuery.SetField("name")
			fuzzyQuery.SetBoost(0.8)
			textQueries = append(textQueries, fuzzyQuery)

			if len(q) >= 2 {
				prefixQuery := bleve.NewPrefixQuery(q)
				prefixQuery.SetField("name")
				prefixQuery.SetBoost(0.5)
				textQueries = append(textQueries, prefixQuery)
			}
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Type != "" {
		tq := bleve.NewTermQuery(params.Type)
		tq.SetField("type")
		queries = append(queries, tq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
