package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/service"
)

func TestUpdateProfilePicture(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.token(t, "user-1", "jane@example.com", false)

	resp := ts.api.Put("/api/v1/me/picture", bearer, map[string]any{"picture": "https://img.example.com/jane.png"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "https://img.example.com/jane.png", decode[ProfileResponse](t, resp.Body.Bytes()).Data.Picture)

	resp = ts.api.Put("/api/v1/me/picture", bearer, map[string]any{"picture": "not a url"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[any](t, resp.Body.Bytes()).Code)
}

func TestGetPublicProfile(t *testing.T) {
	ts := setupTestServer(t)

	// The owner's first request creates the profile.
	owner := ts.token(t, "user-1", "john.smith@example.com", false)
	require.Equal(t, http.StatusOK, ts.api.Get("/api/v1/me", owner).Code)

	viewer := ts.token(t, "user-2", "jane@example.com", false)

	resp := ts.api.Get("/api/v1/profiles/john.smith@example.com", viewer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	profile := decode[service.PublicProfile](t, resp.Body.Bytes()).Data
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, "John Smith", profile.Username)
	assert.Empty(t, profile.Favorites)
	assert.Zero(t, profile.Totals.PagesRead)

	resp = ts.api.Get("/api/v1/profiles/nobody", viewer)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/profiles/ghost@example.com", viewer)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, resp.Body.Bytes()).Code)
}
