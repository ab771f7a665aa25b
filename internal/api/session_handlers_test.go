package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
)

func TestLogSession_AdvancesProgress(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.token(t, "user-1", "jane@example.com", false)
	bookID := ts.seedBook(t, "Dune", 412)

	resp := ts.api.Put(bookPath(bookID, "state"), bearer, map[string]any{"state": "reading", "date": "2024-03-01"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/me/sessions", bearer, map[string]any{
		"book_id":    bookID,
		"start_time": "2024-03-02T20:00:00Z",
		"end_time":   "2024-03-02T21:35:00Z",
		"start_page": 10,
		"end_page":   58,
		"notes":      "  Arrakis  ",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	session := decode[SessionResponse](t, resp.Body.Bytes()).Data
	assert.Positive(t, session.ID)
	assert.Equal(t, 48, session.PagesRead)
	assert.Equal(t, domain.SessionDuration{Hours: 1, Minutes: 35}, session.Duration)
	assert.Equal(t, "Arrakis", session.Notes)

	resp = ts.api.Get("/api/v1/me/reading", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	items := decode[UserBookListResponse](t, resp.Body.Bytes()).Data.Items
	require.Len(t, items, 1)
	assert.Equal(t, 58, items[0].CurrentPage)

	resp = ts.api.Get(bookPath(bookID, "reading-stats"), bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stats := decode[domain.BookReadingStats](t, resp.Body.Bytes()).Data
	assert.Equal(t, 1, stats.SessionCount)
	assert.Equal(t, 48, stats.PagesRead)
	assert.InDelta(t, 1.6, stats.TotalHours, 0.001)
}

func TestLogSession_Validation(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.token(t, "user-1", "jane@example.com", false)
	bookID := ts.seedBook(t, "Dune", 412)

	resp := ts.api.Post("/api/v1/me/sessions", bearer, map[string]any{
		"book_id":    bookID,
		"start_time": "2024-03-02T21:00:00Z",
		"end_time":   "2024-03-02T20:00:00Z",
		"end_page":   10,
	})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode[any](t, resp.Body.Bytes()).Code)

	resp = ts.api.Post("/api/v1/me/sessions", bearer, map[string]any{
		"book_id":    bookID + 100,
		"start_time": "2024-03-02T20:00:00Z",
		"end_time":   "2024-03-02T21:00:00Z",
		"end_page":   10,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}

func TestSessions_ListYearsCalendarAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.token(t, "user-1", "jane@example.com", false)
	other := ts.token(t, "user-2", "john@example.com", false)
	bookID := ts.seedBook(t, "Dune", 412)

	log := func(start, end string) int64 {
		t.Helper()
		resp := ts.api.Post("/api/v1/me/sessions", owner, map[string]any{
			"book_id":    bookID,
			"start_time": start,
			"end_time":   end,
			"start_page": 1,
			"end_page":   20,
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		return decode[SessionResponse](t, resp.Body.Bytes()).Data.ID
	}

	first := log("2023-12-30T10:00:00Z", "2023-12-30T10:10:00Z")
	log("2024-01-05T10:00:00Z", "2024-01-05T11:30:00Z")
	log("2024-01-05T18:00:00Z", "2024-01-05T18:45:00Z")

	resp := ts.api.Get("/api/v1/me/sessions/years", owner)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []int{2024, 2023}, decode[SessionYearsResponse](t, resp.Body.Bytes()).Data.Years)

	resp = ts.api.Get("/api/v1/me/sessions?year=2024", owner)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[SessionPageResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, 2, page.Total)

	resp = ts.api.Get(fmt.Sprintf("/api/v1/me/sessions?book_id=%d", bookID), owner)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 3, decode[SessionPageResponse](t, resp.Body.Bytes()).Data.Total)

	resp = ts.api.Get("/api/v1/me/calendar?year=2024", owner)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	calendar := decode[CalendarResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, 2024, calendar.Year)
	require.Len(t, calendar.Days, 1)
	assert.Equal(t, "2024-01-05", calendar.Days[0].Date)
	assert.Equal(t, 135, calendar.Days[0].Minutes)
	assert.Equal(t, 4, calendar.Days[0].Level)

	// Someone else's session is forbidden.
	require.Equal(t, http.StatusOK, ts.api.Get("/api/v1/me", other).Code)
	resp = ts.api.Delete(fmt.Sprintf("/api/v1/me/sessions/%d", first), other)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Equal(t, "FORBIDDEN", decode[any](t, resp.Body.Bytes()).Code)

	resp = ts.api.Delete(fmt.Sprintf("/api/v1/me/sessions/%d", first), owner)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[DeletedResponse](t, resp.Body.Bytes()).Data.Deleted)

	resp = ts.api.Delete(fmt.Sprintf("/api/v1/me/sessions/%d", first), owner)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
