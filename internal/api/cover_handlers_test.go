package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestServeCover(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.storage.Covers.Save("1-dune.png", pngHeader))

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/covers/1-dune.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, CacheOneWeek, rec.Header().Get("Cache-Control"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/covers/1-dune.png", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestServeCover_Missing(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/covers/404.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/covers/.hidden", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
