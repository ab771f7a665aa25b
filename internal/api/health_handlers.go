package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"
)

// Component status values.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(),
		"search":   s.checkSearchIndex(),
		"sse":      s.checkSSEManager(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch c.Status {
		case statusUnhealthy:
			overall = statusUnhealthy
		case statusDegraded:
			if overall == statusHealthy {
				overall = statusDegraded
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies SQLite answers.
func (s *Server) checkDatabase() ComponentHealth {
	if s.db == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	err := s.db.Ping()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "database ping failed",
		}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkSearchIndex verifies the Bleve index is accessible. An empty index
// is reported as degraded since searches fall back to SQL.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}

	start := time.Now()
	count, err := s.index.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}
	if count == 0 {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "search index empty",
		}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: humanize.Comma(int64(count)) + " books indexed",
	}
}

// checkSSEManager reports connected stream clients.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "SSE manager not configured"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: formatSSEStatus(s.sseManager.ClientCount()),
	}
}

func formatSSEStatus(count int) string {
	switch count {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	default:
		return humanize.Comma(int64(count)) + " connected clients"
	}
}
