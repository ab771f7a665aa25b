package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/listenupapp/readup-server/internal/client/statecontrol"
	"github.com/listenupapp/readup-server/internal/domain"
)

// EventShelfChanged is sent when one of the viewer's books changes shelf.
const EventShelfChanged = "shelf.changed"

// Event is one frame of the server's event stream.
type Event struct {
	Type string
	Data json.RawMessage
}

// ShelfChange is the payload of a shelf.changed event.
type ShelfChange struct {
	BookID   int64            `json:"book_id"`
	Previous string           `json:"previous"`
	Current  string           `json:"current"`
	UserBook *domain.UserBook `json:"user_book,omitempty"`
}

// State is the shelf the book moved to, nil when it left every shelf.
func (c ShelfChange) State() (*domain.State, error) {
	return domain.ParseOptionalState(c.Current)
}

// ShelfChange decodes a shelf.changed event. It reports false for any other
// event type.
func (e Event) ShelfChange() (ShelfChange, bool, error) {
	var change ShelfChange
	if e.Type != EventShelfChanged {
		return change, false, nil
	}
	if err := json.Unmarshal(e.Data, &change); err != nil {
		return change, true, fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return change, true, nil
}

// FollowShelf feeds the shelf moves of ctrl's book into ctrl.Sync until ctx
// is done or the stream ends. Moves made elsewhere supersede a transition
// still in flight.
func (c *Client) FollowShelf(ctx context.Context, ctrl *statecontrol.Controller) error {
	bookID := ctrl.Snapshot().BookID
	return c.Subscribe(ctx, func(e Event) error {
		change, ok, err := e.ShelfChange()
		if err != nil || !ok || change.BookID != bookID {
			return err
		}
		state, err := change.State()
		if err != nil {
			return err
		}
		ctrl.Sync(state)
		return nil
	})
}

// Subscribe reads the event stream until ctx is done, the server closes it
// or fn returns an error. Browsers cannot set headers on EventSource, so the
// token travels as a query parameter.
func (c *Client) Subscribe(ctx context.Context, fn func(Event) error) error {
	rel := &url.URL{Path: "/api/v1/events"}
	if c.token != "" {
		rel.RawQuery = url.Values{"access_token": {c.token}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(rel).String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var (
		current Event
		data    strings.Builder
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.Type == "" && data.Len() == 0 {
				continue
			}
			current.Data = json.RawMessage(data.String())
			if err := fn(current); err != nil {
				return err
			}
			current = Event{}
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			current.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return ctx.Err()
}
