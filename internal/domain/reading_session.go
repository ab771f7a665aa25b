package domain

import "time"

// MaxSessionNotesLength bounds the free-text notes of a reading session.
const MaxSessionNotesLength = 1000

// ReadingSession is one timed reading interval. Sessions are append-only:
// the owner creates and deletes them, nobody updates them.
type ReadingSession struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	BookID    int64     `json:"book_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	StartPage int       `json:"start_page"`
	EndPage   int       `json:"end_page"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Book is populated by queries that join the catalog.
	Book *Book `json:"book,omitempty"`
}

// Duration is the wall-clock length of the session.
func (s *ReadingSession) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Minutes is the whole number of minutes read, rounded down.
func (s *ReadingSession) Minutes() int {
	return int(s.Duration() / time.Minute)
}

// PagesRead is the number of pages advanced during the session.
func (s *ReadingSession) PagesRead() int {
	if s.EndPage < s.StartPage {
		return 0
	}
	return s.EndPage - s.StartPage
}

// SessionDuration splits a session length into hours and minutes.
type SessionDuration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// HoursMinutes returns the floor of the total minutes as hours and minutes.
// Sessions with an end before their start report zero.
func (s *ReadingSession) HoursMinutes() SessionDuration {
	total := s.Minutes()
	if total < 0 {
		return SessionDuration{}
	}
	return SessionDuration{Hours: total / 60, Minutes: total % 60}
}
