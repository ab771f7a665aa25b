package domain

import (
	"time"

	domainerrors "github.com/listenupapp/readup-server/internal/errors"
)

// Column names a timestamp column of a UserBook row.
type Column string

// Timestamp columns.
const (
	ColumnStartWishlist Column = "start_wishlist_date"
	ColumnEndWishlist   Column = "end_wishlist_date"
	ColumnStartLater    Column = "start_later_date"
	ColumnEndLater      Column = "end_later_date"
	ColumnStartReading  Column = "start_reading_date"
	ColumnEndReading    Column = "end_reading_date"
	ColumnReadDate      Column = "read_date"
)

// Columns lists every timestamp column in table order.
var Columns = []Column{
	ColumnStartWishlist, ColumnEndWishlist,
	ColumnStartLater, ColumnEndLater,
	ColumnStartReading, ColumnEndReading,
	ColumnReadDate,
}

// Valid reports whether c is a known timestamp column.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}

// FieldUpdates are the timestamp columns a transition writes. Columns absent
// from the map keep their stored value.
type FieldUpdates map[Column]time.Time

// Policy describes what a transition writes.
type Policy struct {
	// NeedsPrompt is set when the user must supply the date for Column.
	NeedsPrompt bool `json:"needs_prompt"`
	// Column receives the captured date, or "now" when the book is removed.
	Column Column `json:"column,omitempty"`
	// Exit is the end_* column of a wishlist or later interval being closed.
	Exit Column `json:"exit_column,omitempty"`
}

// PolicyFor decides, for a move from current to requested, whether a date
// must be captured and which columns it lands in.
func PolicyFor(current, requested *State) Policy {
	var p Policy

	if requested == nil {
		p.Column = endColumn(current)
	} else {
		p.NeedsPrompt = true
		switch *requested {
		case StateReading:
			p.Column = ColumnStartReading
		case StateRead:
			p.Column = ColumnReadDate
			if current != nil && *current == StateReading {
				p.Column = ColumnEndReading
			}
		case StateWishlist:
			p.Column = ColumnStartWishlist
		case StateLater:
			p.Column = ColumnStartLater
		}
	}

	if current != nil && !SameState(current, requested) {
		switch *current {
		case StateWishlist:
			p.Exit = ColumnEndWishlist
		case StateLater:
			p.Exit = ColumnEndLater
		}
	}
	return p
}

// Plan builds the column updates for a transition. A target that needs a
// prompt fails with VALIDATION_ERROR when captured is nil or zero, before
// anything is written. Exited wishlist and later intervals are closed with
// the captured date, or now when the book is removed.
func Plan(current, requested *State, captured *time.Time, now time.Time) (FieldUpdates, error) {
	p := PolicyFor(current, requested)

	if p.NeedsPrompt {
		if captured == nil || captured.IsZero() {
			return nil, domainerrors.ValidationWithDetails(
				"a date is required for this transition",
				map[string]string{"column": string(p.Column), "state": StateName(requested)},
			)
		}
	}

	stamp := now
	if captured != nil && !captured.IsZero() {
		stamp = *captured
	}

	updates := FieldUpdates{}
	if p.Column != "" {
		updates[p.Column] = stamp
	}
	if p.Exit != "" {
		updates[p.Exit] = stamp
	}
	return updates, nil
}

func endColumn(s *State) Column {
	if s == nil {
		return ""
	}
	switch *s {
	case StateWishlist:
		return ColumnEndWishlist
	case StateLater:
		return ColumnEndLater
	case StateReading:
		return ColumnEndReading
	default:
		return ""
	}
}
