package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get current profile",
		Description: "Returns the profile of the authenticated user",
		Tags:        []string{"Profiles"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfilePicture",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/picture",
		Summary:     "Update profile picture",
		Description: "Sets the picture URL of the authenticated user",
		Tags:        []string{"Profiles"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfilePicture)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profiles/{email}",
		Summary:     "Get public profile",
		Description: "Returns a user's public profile with reading totals and favorites",
		Tags:        []string{"Profiles"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPublicProfile)
}

// === DTOs ===

// ProfileResponse is the authenticated user's own profile.
type ProfileResponse struct {
	ID        string    `json:"id" doc:"User ID"`
	Email     string    `json:"email" doc:"Email address"`
	Username  string    `json:"username" doc:"Display name derived from the email"`
	Picture   string    `json:"picture,omitempty" doc:"Picture URL"`
	IsAdmin   bool      `json:"is_admin" doc:"Whether the user may edit the catalog"`
	CreatedAt time.Time `json:"created_at" doc:"First seen"`
}

// ProfileOutput wraps a profile for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// UpdatePictureRequest is the new picture.
type UpdatePictureRequest struct {
	Picture string `json:"picture" doc:"Absolute http(s) URL, at most 512 characters"`
}

// UpdatePictureInput contains parameters for updating the picture.
type UpdatePictureInput struct {
	Body UpdatePictureRequest
}

// GetPublicProfileInput selects a profile by email.
type GetPublicProfileInput struct {
	Email string `path:"email" doc:"Email of the profile owner"`
}

// PublicProfileOutput wraps a public profile for Huma.
type PublicProfileOutput struct {
	Body *service.PublicProfile
}

// === Handlers ===

func (s *Server) handleGetCurrentProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Profile.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: mapProfileResponse(p)}, nil
}

func (s *Server) handleUpdateProfilePicture(ctx context.Context, input *UpdatePictureInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Profile.UpdatePicture(ctx, userID, input.Body.Picture)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: mapProfileResponse(p)}, nil
}

func (s *Server) handleGetPublicProfile(ctx context.Context, input *GetPublicProfileInput) (*PublicProfileOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	p, err := s.services.Profile.GetProfileByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	return &PublicProfileOutput{Body: p}, nil
}

func mapProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Username:  p.Username(),
		Picture:   p.Picture,
		IsAdmin:   p.IsAdmin,
		CreatedAt: p.CreatedAt,
	}
}
