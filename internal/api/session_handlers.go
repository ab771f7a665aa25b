package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/store"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "logReadingSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/me/sessions",
		Summary:       "Log reading session",
		Description:   "Records a timed reading session. Advances the current page of a book being read",
		Tags:          []string{"Reading Sessions"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleLogSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReadingSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/sessions",
		Summary:     "List reading sessions",
		Description: "Returns a page of the viewer's sessions, most recent first",
		Tags:        []string{"Reading Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReadingSessionYears",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/sessions/years",
		Summary:     "List session years",
		Description: "Returns the years with at least one session, newest first",
		Tags:        []string{"Reading Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSessionYears)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReadingSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/me/sessions/{id}",
		Summary:     "Delete reading session",
		Description: "Deletes one of the viewer's sessions",
		Tags:        []string{"Reading Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookReadingStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/books/{id}/reading-stats",
		Summary:     "Get book reading stats",
		Description: "Summarizes the viewer's sessions on a book",
		Tags:        []string{"Reading Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBookReadingStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingCalendar",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/calendar",
		Summary:     "Get reading calendar",
		Description: "Returns minutes read per day of a year with a 0-4 activity level",
		Tags:        []string{"Reading Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCalendar)
}

// === DTOs ===

// LogSessionRequest is a session as submitted by its owner.
type LogSessionRequest struct {
	BookID    int64    `json:"book_id" doc:"Book ID"`
	StartTime FlexTime `json:"start_time" doc:"When reading started"`
	EndTime   FlexTime `json:"end_time" doc:"When reading stopped, after start_time"`
	StartPage int      `json:"start_page,omitempty" doc:"First page read"`
	EndPage   int      `json:"end_page" doc:"Last page read, at least start_page"`
	Notes     string   `json:"notes,omitempty" doc:"Free-text notes, at most 1000 characters"`
}

// LogSessionInput contains the session to log.
type LogSessionInput struct {
	Body LogSessionRequest
}

// SessionResponse is a session with its duration split for display.
type SessionResponse struct {
	ID        int64                  `json:"id" doc:"Session ID"`
	BookID    int64                  `json:"book_id" doc:"Book ID"`
	StartTime time.Time              `json:"start_time" doc:"Start"`
	EndTime   time.Time              `json:"end_time" doc:"End"`
	StartPage int                    `json:"start_page" doc:"First page"`
	EndPage   int                    `json:"end_page" doc:"Last page"`
	PagesRead int                    `json:"pages_read" doc:"end_page - start_page"`
	Duration  domain.SessionDuration `json:"duration" doc:"Whole hours and minutes"`
	Notes     string                 `json:"notes,omitempty" doc:"Notes"`
	CreatedAt time.Time              `json:"created_at" doc:"Logged at"`
	Book      *domain.Book           `json:"book,omitempty" doc:"Book, when joined"`
}

// SessionOutput wraps a session for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// ListSessionsInput contains parameters for listing sessions.
type ListSessionsInput struct {
	PageParams
	Year   int    `query:"year" minimum:"0" doc:"Restrict to a year; 0 for all"`
	Query  string `query:"q" maxLength:"200" doc:"Book title filter"`
	BookID int64  `query:"book_id" minimum:"0" doc:"Restrict to one book; lists all of its sessions"`
}

// SessionPageResponse is a page of sessions.
type SessionPageResponse struct {
	Items   []SessionResponse `json:"items" doc:"Sessions"`
	Total   int               `json:"total" doc:"Matching sessions"`
	Page    int               `json:"page" doc:"Page number"`
	Size    int               `json:"size" doc:"Page size"`
	HasMore bool              `json:"has_more" doc:"Whether more pages follow"`
}

// SessionPageOutput wraps a page of sessions for Huma.
type SessionPageOutput struct {
	Body SessionPageResponse
}

// SessionYearsResponse lists years with sessions.
type SessionYearsResponse struct {
	Years []int `json:"years" doc:"Years, newest first"`
}

// SessionYearsOutput wraps years for Huma.
type SessionYearsOutput struct {
	Body SessionYearsResponse
}

// SessionIDInput selects a session.
type SessionIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Session ID"`
}

// DeletedResponse acknowledges a deletion.
type DeletedResponse struct {
	ID      int64 `json:"id" doc:"Deleted ID"`
	Deleted bool  `json:"deleted" doc:"Always true"`
}

// DeletedOutput wraps a deletion for Huma.
type DeletedOutput struct {
	Body DeletedResponse
}

// BookReadingStatsOutput wraps per-book stats for Huma.
type BookReadingStatsOutput struct {
	Body domain.BookReadingStats
}

// YearInput selects a year.
type YearInput struct {
	Year int `query:"year" minimum:"0" doc:"Year; 0 or absent for the current year"`
}

// CalendarResponse is the heat-map of a year.
type CalendarResponse struct {
	Year int                  `json:"year" doc:"Year"`
	Days []domain.CalendarDay `json:"days" doc:"Days with reading, ascending"`
}

// CalendarOutput wraps the heat-map for Huma.
type CalendarOutput struct {
	Body CalendarResponse
}

// === Handlers ===

func (s *Server) handleLogSession(ctx context.Context, input *LogSessionInput) (*SessionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	body := input.Body
	session, err := s.services.ReadingSession.LogSession(ctx, userID, service.LogSessionInput{
		BookID:    body.BookID,
		StartTime: body.StartTime.ToTime(),
		EndTime:   body.EndTime.ToTime(),
		StartPage: body.StartPage,
		EndPage:   body.EndPage,
		Notes:     body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: mapSessionResponse(session)}, nil
}

func (s *Server) handleListSessions(ctx context.Context, input *ListSessionsInput) (*SessionPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if input.BookID > 0 {
		sessions, err := s.services.ReadingSession.ListSessions(ctx, userID, input.BookID)
		if err != nil {
			return nil, err
		}
		return &SessionPageOutput{Body: SessionPageResponse{
			Items: mapSessionResponses(sessions),
			Total: len(sessions),
			Page:  1,
			Size:  len(sessions),
		}}, nil
	}

	result, err := s.services.ReadingSession.ListSessionsPage(ctx, userID, input.Year, input.Query, input.page())
	if err != nil {
		return nil, err
	}
	return &SessionPageOutput{Body: mapSessionPage(result)}, nil
}

func (s *Server) handleListSessionYears(ctx context.Context, _ *struct{}) (*SessionYearsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	years, err := s.services.ReadingSession.SessionYears(ctx, userID)
	if err != nil {
		return nil, err
	}
	if years == nil {
		years = []int{}
	}
	return &SessionYearsOutput{Body: SessionYearsResponse{Years: years}}, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, input *SessionIDInput) (*DeletedOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.ReadingSession.DeleteSession(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &DeletedOutput{Body: DeletedResponse{ID: input.ID, Deleted: true}}, nil
}

func (s *Server) handleGetBookReadingStats(ctx context.Context, input *BookIDInput) (*BookReadingStatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.ReadingSession.BookReadingStats(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookReadingStatsOutput{Body: stats}, nil
}

func (s *Server) handleGetCalendar(ctx context.Context, input *YearInput) (*CalendarOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	year := input.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	days, err := s.services.ReadingSession.Calendar(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []domain.CalendarDay{}
	}
	return &CalendarOutput{Body: CalendarResponse{Year: year, Days: days}}, nil
}

func mapSessionResponse(rs *domain.ReadingSession) SessionResponse {
	return SessionResponse{
		ID:        rs.ID,
		BookID:    rs.BookID,
		StartTime: rs.StartTime,
		EndTime:   rs.EndTime,
		StartPage: rs.StartPage,
		EndPage:   rs.EndPage,
		PagesRead: rs.PagesRead(),
		Duration:  rs.HoursMinutes(),
		Notes:     rs.Notes,
		CreatedAt: rs.CreatedAt,
		Book:      rs.Book,
	}
}

func mapSessionResponses(sessions []*domain.ReadingSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, rs := range sessions {
		out = append(out, mapSessionResponse(rs))
	}
	return out
}

func mapSessionPage(result store.Result[*domain.ReadingSession]) SessionPageResponse {
	return SessionPageResponse{
		Items:   mapSessionResponses(result.Items),
		Total:   result.Total,
		Page:    result.Page,
		Size:    result.Size,
		HasMore: result.HasMore,
	}
}
