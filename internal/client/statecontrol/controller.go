// Package statecontrol holds the shelf state of one book on the client side,
// ahead of server confirmation.
//
// A Transition shows the requested state immediately and reverts it when the
// server refuses. Each call is tagged with a request token; a response whose
// token is no longer the latest is dropped, so a slow reply can never
// overwrite a newer Sync or Cancel.
package statecontrol

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
)

var (
	// ErrBusy is returned while another transition is in flight.
	ErrBusy = errors.New("statecontrol: transition already in flight")

	// ErrSuperseded is returned when the response arrived after a Sync or
	// Cancel and was discarded.
	ErrSuperseded = errors.New("statecontrol: response superseded")
)

// Gateway persists a state change. A nil target removes the book from every
// shelf; the returned row is nil in that case.
type Gateway interface {
	SetState(ctx context.Context, bookID int64, target *domain.State, captured *time.Time) (*domain.UserBook, error)
}

// Snapshot is the controller state handed to observers.
type Snapshot struct {
	BookID     int64
	Committed  *domain.State
	Optimistic *domain.State
	Pending    bool
	// Err is the failure that caused a rollback, nil otherwise.
	Err error
}

// Controller serializes the transitions of one book.
type Controller struct {
	gateway Gateway
	bookID  int64

	mu         sync.Mutex
	committed  *domain.State
	optimistic *domain.State
	pending    bool
	token      uint64
	cancel     context.CancelFunc
	observers  map[uint64]func(Snapshot)
	nextObs    uint64
}

// New creates a controller for bookID starting from the state last read from
// the server.
func New(gateway Gateway, bookID int64, initial *domain.State) *Controller {
	return &Controller{
		gateway:    gateway,
		bookID:     bookID,
		committed:  copyState(initial),
		optimistic: copyState(initial),
		observers:  make(map[uint64]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(nil)
}

// Pending reports whether a transition is in flight. Controls bound to the
// controller should be disabled while it is.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// OnChange registers fn to run after every change. The returned function
// removes it.
func (c *Controller) OnChange(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Transition moves the book to target, nil meaning off every shelf. The
// optimistic state changes before the gateway is called; on failure it
// reverts and the gateway error is returned unchanged.
func (c *Controller) Transition(ctx context.Context, target *domain.State, captured *time.Time) (*domain.UserBook, error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.token++
	token := c.token
	previous := c.optimistic
	c.optimistic = copyState(target)
	c.pending = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	started := c.snapshotLocked(nil)
	c.mu.Unlock()
	c.notify(started)

	ub, err := c.gateway.SetState(ctx, c.bookID, target, captured)
	cancel()

	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	c.pending = false
	c.cancel = nil
	if err != nil {
		c.optimistic = previous
	} else {
		c.committed = stateOf(ub)
		c.optimistic = copyState(c.committed)
	}
	done := c.snapshotLocked(err)
	c.mu.Unlock()
	c.notify(done)

	return ub, err
}

// Sync applies a state pushed by the server. Any in-flight response is
// discarded when it arrives.
func (c *Controller) Sync(state *domain.State) {
	c.mu.Lock()
	c.token++
	c.committed = copyState(state)
	c.optimistic = copyState(state)
	c.pending = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	snap := c.snapshotLocked(nil)
	c.mu.Unlock()
	c.notify(snap)
}

// Cancel abandons the in-flight transition, if any, and restores the
// committed state. The request is canceled but may still have reached the
// server; a later Sync brings the controller back in line.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return
	}
	c.token++
	c.pending = false
	c.optimistic = copyState(c.committed)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	snap := c.snapshotLocked(nil)
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) snapshotLocked(err error) Snapshot {
	return Snapshot{
		BookID:     c.bookID,
		Committed:  copyState(c.committed),
		Optimistic: copyState(c.optimistic),
		Pending:    c.pending,
		Err:        err,
	}
}

func (c *Controller) notify(s Snapshot) {
	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func stateOf(ub *domain.UserBook) *domain.State {
	if ub == nil {
		return nil
	}
	return ub.State.Ptr()
}

func copyState(s *domain.State) *domain.State {
	if s == nil {
		return nil
	}
	return s.Ptr()
}
