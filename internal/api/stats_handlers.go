package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/domain"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getUserStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/stats",
		Summary:     "Get user statistics",
		Description: "Returns shelf counts, the books read in a year, reading pace and monthly activity",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUserStats)
}

// UserStatsOutput wraps user statistics for Huma.
type UserStatsOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *domain.UserStats
}

func (s *Server) handleGetUserStats(ctx context.Context, input *YearInput) (*UserStatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.UserStats(ctx, userID, input.Year)
	if err != nil {
		return nil, err
	}
	return &UserStatsOutput{CacheControl: CacheNoStore, Body: stats}, nil
}
