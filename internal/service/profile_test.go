package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/sse"
)

func TestProfile_EnsureIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.profiles()
	ctx := context.Background()

	first, err := svc.Ensure(ctx, "u1", "jane.doe@example.com", false)
	require.NoError(t, err)
	second, err := svc.Ensure(ctx, "u1", "jane.doe@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	_, err = svc.Ensure(ctx, "u2", "JANE.DOE@example.com", false)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestProfile_GetByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1", "jane.doe@example.com")
	bookID := env.seedBook(t, "Dune", 600)
	ctx := context.Background()

	_, err := env.shelf().SetState(ctx, "u1", bookID, domain.StateRead.Ptr(), date(2024, 1, 1))
	require.NoError(t, err)
	_, err = env.favorites().ToggleFavorite(ctx, "u1", bookID, false)
	require.NoError(t, err)

	svc := env.profiles()

	_, err = svc.GetProfileByEmail(ctx, "jane.doe")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = svc.GetProfileByEmail(ctx, "nobody@example.com")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	p, err := svc.GetProfileByEmail(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Username)
	assert.Equal(t, 600, p.Totals.PagesRead)
	require.Len(t, p.Favorites, 1)
	assert.Equal(t, bookID, p.Favorites[0].BookID)
}

func TestProfile_UpdatePicture(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1", "jane.doe@example.com")
	svc := env.profiles()
	ctx := context.Background()

	p, err := svc.UpdatePicture(ctx, "u1", "https://img.example.com/me.png")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/me.png", p.Picture)
	assert.Equal(t, []sse.EventType{sse.EventProfileUpdated}, env.events.types())

	_, err = svc.UpdatePicture(ctx, "u1", "not a url")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	tooLong := "https://img.example.com/" + strings.Repeat("a", domain.MaxPictureURLLength)
	_, err = svc.UpdatePicture(ctx, "u1", tooLong)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = svc.UpdatePicture(ctx, "", "https://img.example.com/me.png")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestProfile_Me(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1", "john@example.com")
	svc := env.profiles()

	p, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "John", svc.Username(p))

	_, err = svc.Me(context.Background(), "ghost")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
