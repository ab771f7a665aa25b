// Package client talks to the ReadUp HTTP API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/store"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "readup-cli/1.0"
	requestTimeout   = 15 * time.Second
)

// dateLayout is how captured dates are sent: the server reads them as UTC days.
const dateLayout = "2006-01-02"

// Error is a failure reported by the server in its error envelope.
type Error struct {
	Status  int
	Code    domainerrors.Code
	Message string
	Details json.RawMessage
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a server error carrying code.
func IsCode(err error, code domainerrors.Code) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// envelope is either response shape the server writes.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// Client calls the ReadUp API with a bearer token.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	stream    *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for regular requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.stream = hc
	}
}

// New builds a Client for the server at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		token:     strings.TrimSpace(token),
		http:      &http.Client{Timeout: requestTimeout},
		stream:    &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Profile is the authenticated user as the server describes it.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Picture   string    `json:"picture,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// BookQuery filters the catalog listing.
type BookQuery struct {
	Query string
	Type  domain.BookType
	Page  int
	Size  int
}

// ListBooks searches the catalog.
func (c *Client) ListBooks(ctx context.Context, q BookQuery) (store.Result[*domain.Book], error) {
	values := url.Values{}
	if s := strings.TrimSpace(q.Query); s != "" {
		values.Set("q", s)
	}
	if q.Type != "" {
		values.Set("type", string(q.Type))
	}
	setPage(values, q.Page, q.Size)

	var result store.Result[*domain.Book]
	err := c.do(ctx, http.MethodGet, "/api/v1/books", values, nil, &result)
	return result, err
}

// BookDetail is a catalog entry with the viewer's row.
type BookDetail struct {
	Book     *domain.Book     `json:"book"`
	UserBook *domain.UserBook `json:"user_book,omitempty"`
}

// GetBook returns a catalog entry and the viewer's row for it.
func (c *Client) GetBook(ctx context.Context, id int64) (*BookDetail, error) {
	var d BookDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/books/"+strconv.FormatInt(id, 10), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Transition describes what moving a book to a state would do.
type Transition struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	NeedsPrompt bool          `json:"needs_prompt"`
	Column      domain.Column `json:"column,omitempty"`
	ExitColumn  domain.Column `json:"exit_column,omitempty"`
}

// PreviewTransition asks whether moving the book to target needs a date.
func (c *Client) PreviewTransition(ctx context.Context, bookID int64, target *domain.State) (*Transition, error) {
	values := url.Values{}
	values.Set("state", domain.StateName(target))

	var t Transition
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "transition"), values, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type userBookBody struct {
	UserBook *domain.UserBook `json:"user_book"`
}

// GetState returns the viewer's row for a book, nil when it is on no shelf.
func (c *Client) GetState(ctx context.Context, bookID int64) (*domain.UserBook, error) {
	var body userBookBody
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "state"), nil, nil, &body); err != nil {
		return nil, err
	}
	return body.UserBook, nil
}

// SetState moves a book to target, or off every shelf when target is nil.
// captured is the date the user picked, required when the transition asks
// for one. It returns the stored row, nil after a removal.
func (c *Client) SetState(ctx context.Context, bookID int64, target *domain.State, captured *time.Time) (*domain.UserBook, error) {
	payload := map[string]any{"state": nil}
	if target != nil {
		payload["state"] = string(*target)
	}
	if captured != nil {
		payload["date"] = captured.UTC().Format(dateLayout)
	}

	var body userBookBody
	if err := c.do(ctx, http.MethodPut, bookPath(bookID, "state"), nil, payload, &body); err != nil {
		return nil, err
	}
	return body.UserBook, nil
}

// UpdateProgress records the current page of a book being read.
func (c *Client) UpdateProgress(ctx context.Context, bookID int64, page int) error {
	return c.do(ctx, http.MethodPut, bookPath(bookID, "progress"), nil, map[string]int{"page": page}, nil)
}

// SetFavorite sets the favorite flag and returns the stored value.
func (c *Client) SetFavorite(ctx context.Context, bookID int64, favorite bool) (bool, error) {
	var body struct {
		IsFavorite bool `json:"is_favorite"`
	}
	err := c.do(ctx, http.MethodPut, bookPath(bookID, "favorite"), nil, map[string]bool{"favorite": favorite}, &body)
	return body.IsFavorite, err
}

// ListShelf returns a page of the viewer's books in a state.
func (c *Client) ListShelf(ctx context.Context, state domain.State, query string, page, size int) (store.Result[*domain.UserBook], error) {
	values := url.Values{}
	if s := strings.TrimSpace(query); s != "" {
		values.Set("q", s)
	}
	setPage(values, page, size)

	var result store.Result[*domain.UserBook]
	err := c.do(ctx, http.MethodGet, "/api/v1/me/shelves/"+string(state), values, nil, &result)
	return result, err
}

// ListFavorites returns the viewer's favorite books.
func (c *Client) ListFavorites(ctx context.Context) ([]*domain.UserBook, error) {
	var body struct {
		Items []*domain.UserBook `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/me/favorites", nil, nil, &body)
	return body.Items, err
}

// SessionRequest is a reading session to log.
type SessionRequest struct {
	BookID    int64     `json:"book_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	StartPage int       `json:"start_page,omitempty"`
	EndPage   int       `json:"end_page"`
	Notes     string    `json:"notes,omitempty"`
}

// Session is a logged reading session.
type Session struct {
	ID        int64                  `json:"id"`
	BookID    int64                  `json:"book_id"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	StartPage int                    `json:"start_page"`
	EndPage   int                    `json:"end_page"`
	PagesRead int                    `json:"pages_read"`
	Duration  domain.SessionDuration `json:"duration"`
	Notes     string                 `json:"notes,omitempty"`
	Book      *domain.Book           `json:"book,omitempty"`
}

// LogSession records a reading session.
func (c *Client) LogSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/me/sessions", nil, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns a page of the viewer's sessions. year 0 lists all years.
func (c *Client) ListSessions(ctx context.Context, year, page, size int) (store.Result[Session], error) {
	values := url.Values{}
	if year > 0 {
		values.Set("year", strconv.Itoa(year))
	}
	setPage(values, page, size)

	var result store.Result[Session]
	err := c.do(ctx, http.MethodGet, "/api/v1/me/sessions", values, nil, &result)
	return result, err
}

// DeleteSession removes one of the viewer's sessions.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/me/sessions/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// Stats returns the viewer's statistics for a year, 0 for the current one.
func (c *Client) Stats(ctx context.Context, year int) (*domain.UserStats, error) {
	values := url.Values{}
	if year > 0 {
		values.Set("year", strconv.Itoa(year))
	}
	var stats domain.UserStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/me/stats", values, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Calendar returns the reading heat-map of a year, 0 for the current one.
func (c *Client) Calendar(ctx context.Context, year int) ([]domain.CalendarDay, error) {
	values := url.Values{}
	if year > 0 {
		values.Set("year", strconv.Itoa(year))
	}
	var body struct {
		Days []domain.CalendarDay `json:"days"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/me/calendar", values, nil, &body)
	return body.Days, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, dest any) error {
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	// Correlates CLI requests with server logs.
	req.Header.Set("X-Request-Id", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &Error{
			Status:  resp.StatusCode,
			Code:    domainerrors.Code(env.Code),
			Message: msg,
			Details: env.Details,
		}
	}

	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func bookPath(bookID int64, suffix string) string {
	return "/api/v1/me/books/" + strconv.FormatInt(bookID, 10) + "/" + suffix
}

func setPage(values url.Values, page, size int) {
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		values.Set("size", strconv.Itoa(size))
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
