package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
)

func TestGetUserStats(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.token(t, "user-1", "jane@example.com", false)

	dune := ts.seedBook(t, "Dune", 412)
	hobbit := ts.seedBook(t, "The Hobbit", 310)

	resp := ts.api.Put(bookPath(dune, "state"), bearer, map[string]any{"state": "read", "date": "2024-04-10"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = ts.api.Put(bookPath(hobbit, "state"), bearer, map[string]any{"state": "wishlist", "date": "2024-02-01"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/me/stats?year=2024", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, CacheNoStore, resp.Header().Get("Cache-Control"))

	stats := decode[domain.UserStats](t, resp.Body.Bytes()).Data
	assert.Equal(t, 2024, stats.Year)
	assert.Equal(t, 1, stats.BooksByState[domain.StateRead])
	assert.Equal(t, 1, stats.BooksByState[domain.StateWishlist])
	assert.Equal(t, 1, stats.ReadThisYear)
	assert.Equal(t, 412, stats.TotalPagesRead)
	require.Len(t, stats.MonthlyActivity, 12)
	assert.Equal(t, 1, stats.MonthlyActivity[3].Read)
	assert.Equal(t, 1, stats.MonthlyActivity[1].Wishlist)

	// Writes invalidate the cached view.
	resp = ts.api.Put(bookPath(hobbit, "state"), bearer, map[string]any{"state": "read", "date": "2024-06-01"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/me/stats?year=2024", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	stats = decode[domain.UserStats](t, resp.Body.Bytes()).Data
	assert.Equal(t, 2, stats.BooksByState[domain.StateRead])
	assert.Equal(t, 722, stats.TotalPagesRead)

	resp = ts.api.Get("/api/v1/me/stats?year=1200", bearer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
