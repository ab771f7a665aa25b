package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
)

// LogSessionInput is a reading session as submitted by its owner.
type LogSessionInput struct {
	BookID    int64     `json:"book_id" validate:"required,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	StartPage int       `json:"start_page" validate:"gte=0"`
	EndPage   int       `json:"end_page" validate:"gt=0,gtefield=StartPage"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

// ReadingSessionService records timed reading sessions and derives the
// per-book statistics and the calendar heat-map from them.
type ReadingSessionService struct {
	store     *sqlite.Store
	events    store.EventEmitter
	cache     ViewCache
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewReadingSessionService creates a new reading session service.
func NewReadingSessionService(store *sqlite.Store, events store.EventEmitter, cache ViewCache, validator *validation.Validator, logger *slog.Logger) *ReadingSessionService {
	return &ReadingSessionService{
		store:     store,
		events:    events,
		cache:     cache,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// LogSession validates and stores a session. When the book is being read,
// its current page advances to the session's end page if that is further.
func (s *ReadingSessionService) LogSession(ctx context.Context, uid string, in LogSessionInput) (*domain.ReadingSession, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	exists, err := s.store.BookExists(ctx, in.BookID)
	if err != nil {
		return nil, fromStore(err, "book")
	}
	if !exists {
		return nil, domainerrors.NotFoundf("book %d not found", in.BookID)
	}

	session := &domain.ReadingSession{
		UID:       uid,
		BookID:    in.BookID,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		StartPage: in.StartPage,
		EndPage:   in.EndPage,
		Notes:     in.Notes,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateReadingSession(ctx, session); err != nil {
		return nil, fromStore(err, "book")
	}

	advanced, err := s.store.AdvanceCurrentPage(ctx, uid, in.BookID, in.EndPage)
	if err != nil {
		// The session is stored; progress catches up on the next session.
		s.logger.Warn("failed to advance current page",
			"user_id", uid,
			"book_id", in.BookID,
			"error", err)
	}

	invalidateViews(s.cache, s.logger, uid)
	s.events.Emit(sse.NewSessionLoggedEvent(session))
	if advanced {
		s.events.Emit(sse.NewProgressChangedEvent(uid, in.BookID, in.EndPage))
	}

	s.logger.Info("reading session logged",
		"user_id", uid,
		"book_id", in.BookID,
		"session_id", session.ID,
		"minutes", session.Minutes())

	return session, nil
}

// DeleteSession removes a session of uid. Sessions of other users are
// FORBIDDEN.
func (s *ReadingSessionService) DeleteSession(ctx context.Context, uid string, id int64) error {
	if err := requireUser(uid); err != nil {
		return err
	}
	if err := s.store.DeleteReadingSession(ctx, uid, id); err != nil {
		return fromStore(err, "session")
	}

	invalidateViews(s.cache, s.logger, uid)
	s.events.Emit(sse.NewSessionDeletedEvent(uid, id))
	return nil
}

// ListSessions returns the user's sessions, most recent first. A zero bookID
// lists every book.
func (s *ReadingSessionService) ListSessions(ctx context.Context, uid string, bookID int64) ([]*domain.ReadingSession, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListReadingSessions(ctx, uid, bookID)
	if err != nil {
		return nil, fromStore(err, "sessions")
	}
	return nonNil(sessions), nil
}

// ListSessionsPage returns one page of the user's sessions. A zero year
// covers every year; query filters on the book title.
func (s *ReadingSessionService) ListSessionsPage(ctx context.Context, uid string, year int, query string, page store.Page) (store.Result[*domain.ReadingSession], error) {
	if err := requireUser(uid); err != nil {
		return store.Result[*domain.ReadingSession]{}, err
	}
	result, err := s.store.ListReadingSessionsPage(ctx, uid, year, strings.TrimSpace(query), page)
	if err != nil {
		return result, fromStore(err, "sessions")
	}
	return result, nil
}

// SessionYears lists the years with sessions, newest first.
func (s *ReadingSessionService) SessionYears(ctx context.Context, uid string) ([]int, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	years, err := s.store.ReadingSessionYears(ctx, uid)
	if err != nil {
		return nil, fromStore(err, "sessions")
	}
	return years, nil
}

// BookReadingStats summarizes the user's sessions on one book.
func (s *ReadingSessionService) BookReadingStats(ctx context.Context, uid string, bookID int64) (domain.BookReadingStats, error) {
	if err := requireUser(uid); err != nil {
		return domain.BookReadingStats{}, err
	}
	if err := requireBookID(bookID); err != nil {
		return domain.BookReadingStats{}, err
	}

	sessions, err := s.store.ListReadingSessions(ctx, uid, bookID)
	if err != nil {
		return domain.BookReadingStats{}, fromStore(err, "sessions")
	}
	return domain.ComputeBookReadingStats(bookID, sessions, s.now()), nil
}

// SessionDuration splits a session into whole hours and minutes.
func (s *ReadingSessionService) SessionDuration(session *domain.ReadingSession) domain.SessionDuration {
	return session.HoursMinutes()
}

// Calendar returns minutes read per day of year, keyed by the UTC start day.
func (s *ReadingSessionService) Calendar(ctx context.Context, uid string, year int) ([]domain.CalendarDay, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}

	sessions, err := s.store.ListReadingSessionsInYear(ctx, uid, year)
	if err != nil {
		return nil, fromStore(err, "sessions")
	}
	return domain.BuildCalendar(sessions, time.UTC), nil
}

func validateYear(year int) error {
	if year < 1900 || year > 9999 {
		return domainerrors.ValidationWithDetails("invalid year",
			map[string]string{"year": "must be between 1900 and 9999"})
	}
	return nil
}
