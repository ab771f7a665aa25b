package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

func TestEnsureProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.EnsureProfile(ctx, &domain.Profile{ID: "u1", Email: "jane.doe@example.com", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", p.Email)
	assert.True(t, p.IsAdmin)
	assert.False(t, p.CreatedAt.IsZero())

	// Existing profiles are returned unchanged.
	again, err := s.EnsureProfile(ctx, &domain.Profile{ID: "u1", Email: "other@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", again.Email)
	assert.True(t, again.IsAdmin)

	_, err = s.EnsureProfile(ctx, &domain.Profile{ID: "u2", Email: "JANE.DOE@example.com"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetProfileByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")

	p, err := s.GetProfileByEmail(ctx, "U1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)

	_, err = s.GetProfileByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProfilePicture(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "u1")

	require.NoError(t, s.UpdateProfilePicture(ctx, "u1", "https://example.com/me.png"))
	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/me.png", p.Picture)

	err = s.UpdateProfilePicture(ctx, "u1", "https://example.com/"+strings.Repeat("a", 600))
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	assert.ErrorIs(t, s.UpdateProfilePicture(ctx, "missing", ""), store.ErrNotFound)
}
