package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_RequiresAuthentication(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	resp, err := http.Get(srv.URL + eventsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEvents_StreamsViewerChanges(t *testing.T) {
	ts := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.sseManager.Start(ctx)

	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	bearer := ts.token(t, "user-1", "jane@example.com", false)
	raw := strings.TrimPrefix(bearer, "Authorization: Bearer ")
	bookID := ts.seedBook(t, "Dune", 412)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+eventsPath+"?access_token="+raw, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(want string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", want)
				if line == want {
					return
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}

	waitFor("event: connected")

	put := ts.api.Put(bookPath(bookID, "state"), bearer, map[string]any{"state": "wishlist", "date": "2024-01-01"})
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())

	waitFor("event: shelf.changed")
}
