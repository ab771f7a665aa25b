package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/client/statecontrol"
	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"v": 1, "success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"v": 1, "success": false, "code": code, "message": message})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "secret-token")
	require.NoError(t, err)
	return c
}

func TestSetState_SendsStateAndDate(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/me/books/7/state", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Len(t, r.Header.Get("X-Request-Id"), 36)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		writeData(w, http.StatusOK, map[string]any{
			"user_book": map[string]any{"uid": "user-1", "book_id": 7, "state": "reading"},
		})
	})

	captured := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)
	ub, err := c.SetState(context.Background(), 7, domain.StateReading.Ptr(), &captured)
	require.NoError(t, err)
	require.NotNil(t, ub)
	assert.Equal(t, domain.StateReading, ub.State)

	assert.Equal(t, "reading", body["state"])
	assert.Equal(t, "2024-03-01", body["date"])
}

func TestSetState_RemovalSendsNull(t *testing.T) {
	var raw []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		writeData(w, http.StatusOK, map[string]any{"user_book": nil})
	})

	ub, err := c.SetState(context.Background(), 7, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ub)
	assert.JSONEq(t, `{"state":null}`, string(raw))
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusConflict, "LIMIT_EXCEEDED", "favorite limit reached")
	})

	_, err := c.SetFavorite(context.Background(), 7, true)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, domainerrors.CodeLimitExceeded, apiErr.Code)
	assert.Equal(t, "favorite limit reached", apiErr.Message)
	assert.True(t, IsCode(err, domainerrors.CodeLimitExceeded))
	assert.False(t, IsCode(err, domainerrors.CodeInvalidState))
}

func TestPlainErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})

	_, err := c.Me(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Code)
}

func TestListShelf_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me/shelves/read", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Empty(t, r.URL.Query().Get("size"))

		writeData(w, http.StatusOK, map[string]any{
			"items":    []map[string]any{{"uid": "user-1", "book_id": 1, "state": "read"}},
			"total":    21,
			"page":     2,
			"size":     20,
			"has_more": false,
		})
	})

	page, err := c.ListShelf(context.Background(), domain.StateRead, " dune ", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].BookID)
}

func TestSubscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/events", r.URL.Path)
		assert.Equal(t, "secret-token", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: connected\ndata: {\"client_id\":\"sse-1\"}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: shelf.changed\ndata: {\"book_id\":7}\n\n")
	})

	var events []Event
	err := c.Subscribe(context.Background(), func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "connected", events[0].Type)
	assert.Equal(t, "shelf.changed", events[1].Type)
	assert.JSONEq(t, `{"book_id":7}`, string(events[1].Data))
}

func TestSubscribe_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Subscribe(context.Background(), func(Event) error { return nil })
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestFollowShelf_SyncsPushedMoves(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: connected\ndata: {\"client_id\":\"sse-1\"}\n\n")
		fmt.Fprint(w, "event: shelf.changed\ndata: {\"book_id\":7,\"previous\":\"wishlist\",\"current\":\"reading\"}\n\n")
		fmt.Fprint(w, "event: shelf.changed\ndata: {\"book_id\":8,\"previous\":\"none\",\"current\":\"later\"}\n\n")
	})

	ctrl := statecontrol.New(c, 7, domain.StateWishlist.Ptr())
	var seen []string
	ctrl.OnChange(func(s statecontrol.Snapshot) {
		seen = append(seen, domain.StateName(s.Committed))
	})

	require.NoError(t, c.FollowShelf(context.Background(), ctrl))

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.Committed)
	assert.Equal(t, domain.StateReading, *snap.Committed)
	assert.Equal(t, []string{"reading"}, seen, "moves of other books are ignored")
}

func TestFollowShelf_Removal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: shelf.changed\ndata: {\"book_id\":7,\"previous\":\"read\",\"current\":\"none\"}\n\n")
	})

	ctrl := statecontrol.New(c, 7, domain.StateRead.Ptr())
	require.NoError(t, c.FollowShelf(context.Background(), ctrl))
	assert.Nil(t, ctrl.Snapshot().Committed)
}

func TestEventShelfChange_OtherTypes(t *testing.T) {
	_, ok, err := Event{Type: "heartbeat", Data: []byte(`{}`)}.ShelfChange()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Event{Type: EventShelfChanged, Data: []byte(`not json`)}.ShelfChange()
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestControllerOverClient_RollsBackOnConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusBadRequest, "VALIDATION_ERROR", "date is required")
	})

	ctrl := statecontrol.New(c, 7, domain.StateWishlist.Ptr())
	_, err := ctrl.Transition(context.Background(), domain.StateReading.Ptr(), nil)
	assert.True(t, IsCode(err, domainerrors.CodeValidation))

	snap := ctrl.Snapshot()
	assert.Equal(t, domain.StateWishlist, *snap.Optimistic)
	assert.False(t, snap.Pending)
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, u.String())

	u, err = parseBaseURL("readup.local:9000/ignored?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://readup.local:9000", u.String())
}
