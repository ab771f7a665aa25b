package domain

import (
	"strings"
	"time"

	domainerrors "github.com/listenupapp/readup-server/internal/errors"
)

// State is the shelf a book sits on for a user. A nil *State means the user
// has no row for the book.
type State string

// Shelf states.
const (
	StateWishlist State = "wishlist"
	StateLater    State = "later"
	StateReading  State = "reading"
	StateRead     State = "read"
)

// MaxFavorites caps the favorites a user may hold at once.
const MaxFavorites = 4

// States lists the shelves in display order.
var States = []State{StateWishlist, StateLater, StateReading, StateRead}

// ParseState validates a shelf name.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateWishlist, StateLater, StateReading, StateRead:
		return st, nil
	default:
		return "", domainerrors.Validationf("unknown state %q", s)
	}
}

// ParseOptionalState accepts "", "none" and "null" as removal.
func ParseOptionalState(s string) (*State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null":
		return nil, nil
	}
	st, err := ParseState(s)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Ptr returns a pointer to a copy of s.
func (s State) Ptr() *State { return &s }

// StateName renders an optional state, "none" for nil.
func StateName(s *State) string {
	if s == nil {
		return "none"
	}
	return string(*s)
}

// SameState compares two optional states.
func SameState(a, b *State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// UserBook is the per-user, per-book row carrying shelf state and history.
type UserBook struct {
	UID    string `json:"uid"`
	BookID int64  `json:"book_id"`
	State  State  `json:"state"`

	StartWishlistDate *time.Time `json:"start_wishlist_date,omitempty"`
	EndWishlistDate   *time.Time `json:"end_wishlist_date,omitempty"`
	StartLaterDate    *time.Time `json:"start_later_date,omitempty"`
	EndLaterDate      *time.Time `json:"end_later_date,omitempty"`
	StartReadingDate  *time.Time `json:"start_reading_date,omitempty"`
	EndReadingDate    *time.Time `json:"end_reading_date,omitempty"`
	ReadDate          *time.Time `json:"read_date,omitempty"`

	CurrentPage int       `json:"current_page"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Book is populated by queries that join the catalog.
	Book *Book `json:"book,omitempty"`
}

// StatePtr returns the row state as an optional state; nil rows yield nil.
func (ub *UserBook) StatePtr() *State {
	if ub == nil {
		return nil
	}
	return ub.State.Ptr()
}

// Date returns the timestamp stored in column c.
func (ub *UserBook) Date(c Column) *time.Time {
	switch c {
	case ColumnStartWishlist:
		return ub.StartWishlistDate
	case ColumnEndWishlist:
		return ub.EndWishlistDate
	case ColumnStartLater:
		return ub.StartLaterDate
	case ColumnEndLater:
		return ub.EndLaterDate
	case ColumnStartReading:
		return ub.StartReadingDate
	case ColumnEndReading:
		return ub.EndReadingDate
	case ColumnReadDate:
		return ub.ReadDate
	default:
		return nil
	}
}

// ActivityDate is the date that places the row in monthly activity: when the
// book was finished, started, or added to its list.
func (ub *UserBook) ActivityDate() *time.Time {
	switch ub.State {
	case StateRead:
		return ub.FinishedAt()
	case StateReading:
		return ub.StartReadingDate
	case StateLater:
		return ub.StartLaterDate
	case StateWishlist:
		return ub.StartWishlistDate
	default:
		return nil
	}
}
