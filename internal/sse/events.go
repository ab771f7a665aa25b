// Package sse pushes shelf, favorite and session changes to connected clients
// as Server-Sent Events.
package sse

import (
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventShelfChanged is sent when a user's book moves between shelves.
	EventShelfChanged EventType = "shelf.changed"
	// EventFavoriteChanged is sent when a favorite flag flips.
	EventFavoriteChanged EventType = "favorite.changed"
	// EventProgressChanged is sent when the current page of a book moves.
	EventProgressChanged EventType = "progress.changed"

	// EventSessionLogged is sent when a reading session is recorded.
	EventSessionLogged EventType = "session.logged"
	// EventSessionDeleted is sent when a reading session is removed.
	EventSessionDeleted EventType = "session.deleted"

	// EventProfileUpdated is sent when a profile picture changes.
	EventProfileUpdated EventType = "profile.updated"

	// EventBookCreated is broadcast to everyone when the catalog grows.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated is broadcast when catalog data changes, e.g. a cover lands.
	EventBookUpdated EventType = "book.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID scopes the event to one user. Empty means broadcast.
	UserID string `json:"-"`
}

// ShelfEventData is the payload of shelf.changed. UserBook is nil when the
// book was removed from every shelf.
type ShelfEventData struct {
	BookID   int64            `json:"book_id"`
	Previous string           `json:"previous"`
	Current  string           `json:"current"`
	UserBook *domain.UserBook `json:"user_book,omitempty"`
}

// FavoriteEventData is the payload of favorite.changed.
type FavoriteEventData struct {
	BookID     int64 `json:"book_id"`
	IsFavorite bool  `json:"is_favorite"`
}

// ProgressEventData is the payload of progress.changed.
type ProgressEventData struct {
	BookID      int64 `json:"book_id"`
	CurrentPage int   `json:"current_page"`
}

// SessionEventData is the payload of session.logged.
type SessionEventData struct {
	Session *domain.ReadingSession `json:"session"`
}

// SessionDeletedEventData is the payload of session.deleted.
type SessionDeletedEventData struct {
	SessionID int64     `json:"session_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ProfileEventData is the payload of profile.updated.
type ProfileEventData struct {
	Profile  *domain.Profile `json:"profile"`
	Username string          `json:"username"`
}

// BookEventData is the payload of book events.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, uid string, data any) Event {
	return Event{Type: t, UserID: uid, Data: data, Timestamp: time.Now()}
}

// NewShelfChangedEvent creates a shelf.changed event for uid.
func NewShelfChangedEvent(uid string, bookID int64, previous, current *domain.State, ub *domain.UserBook) Event {
	return newEvent(EventShelfChanged, uid, ShelfEventData{
		BookID:   bookID,
		Previous: domain.StateName(previous),
		Current:  domain.StateName(current),
		UserBook: ub,
	})
}

// NewFavoriteChangedEvent creates a favorite.changed event for uid.
func NewFavoriteChangedEvent(uid string, bookID int64, favorite bool) Event {
	return newEvent(EventFavoriteChanged, uid, FavoriteEventData{BookID: bookID, IsFavorite: favorite})
}

// NewProgressChangedEvent creates a progress.changed event for uid.
func NewProgressChangedEvent(uid string, bookID int64, page int) Event {
	return newEvent(EventProgressChanged, uid, ProgressEventData{BookID: bookID, CurrentPage: page})
}

// NewSessionLoggedEvent creates a session.logged event for the session owner.
func NewSessionLoggedEvent(s *domain.ReadingSession) Event {
	return newEvent(EventSessionLogged, s.UID, SessionEventData{Session: s})
}

// NewSessionDeletedEvent creates a session.deleted event for uid.
func NewSessionDeletedEvent(uid string, sessionID int64) Event {
	return newEvent(EventSessionDeleted, uid, SessionDeletedEventData{SessionID: sessionID, DeletedAt: time.Now()})
}

// NewProfileUpdatedEvent creates a profile.updated event for the profile owner.
func NewProfileUpdatedEvent(p *domain.Profile) Event {
	return newEvent(EventProfileUpdated, p.ID, ProfileEventData{Profile: p, Username: p.Username()})
}

// NewBookCreatedEvent creates a broadcast book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return newEvent(EventBookCreated, "", BookEventData{Book: book})
}

// NewBookUpdatedEvent creates a broadcast book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return newEvent(EventBookUpdated, "", BookEventData{Book: book})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Timestamp: now, Data: HeartbeatEventData{ServerTime: now}}
}
