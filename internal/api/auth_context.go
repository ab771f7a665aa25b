package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/auth"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// viewerKey is the context key for the authenticated viewer.
const viewerKey ctxKey = "viewer"

// viewer is the authenticated caller as described by the access token.
type viewer struct {
	ID      string
	Email   string
	IsAdmin bool
}

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	v, err := currentViewer(ctx)
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// currentViewer returns the authenticated viewer or a 401 error.
func currentViewer(ctx context.Context) (viewer, error) {
	v, ok := viewerFrom(ctx)
	if !ok {
		return viewer{}, huma.Error401Unauthorized("Authentication required")
	}
	return v, nil
}

// requireAdmin validates the user is authenticated and has admin role.
func requireAdmin(ctx context.Context) (viewer, error) {
	v, err := currentViewer(ctx)
	if err != nil {
		return viewer{}, err
	}
	if !v.IsAdmin {
		return viewer{}, domainerrors.Forbidden("Admin access required")
	}
	return v, nil
}

func viewerFrom(ctx context.Context) (viewer, bool) {
	v, ok := ctx.Value(viewerKey).(viewer)
	return v, ok && v.ID != ""
}

func withViewer(ctx context.Context, v viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// identifyRequest resolves the viewer for the event stream.
func identifyRequest(r *http.Request) (string, bool) {
	v, ok := viewerFrom(r.Context())
	return v.ID, ok
}

// bearerToken extracts the access token. EventSource cannot set headers, so
// the event stream also accepts an access_token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if r.URL.Path == eventsPath {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the viewer in context. The viewer's profile is created on first sight.
// If no token is present or invalid, continues without user in context.
// Handlers use GetUserID to check authentication.
func authMiddleware(tokens *auth.TokenService, profiles *service.ProfileService, logger *slog.Logger) func(http.Handler) http.Handler {
	var ensured sync.Map

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				// Invalid token - continue without user (handler will reject if auth required)
				logger.Debug("rejected access token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := ensured.Load(claims.UserID); !ok {
				if _, err := profiles.Ensure(r.Context(), claims.UserID, claims.Email, claims.IsAdmin); err != nil {
					logger.Error("failed to ensure profile", "user_id", claims.UserID, "error", err)
					writeError(w, logger, err)
					return
				}
				ensured.Store(claims.UserID, struct{}{})
			}

			ctx := withViewer(r.Context(), viewer{
				ID:      claims.UserID,
				Email:   claims.Email,
				IsAdmin: claims.IsAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
