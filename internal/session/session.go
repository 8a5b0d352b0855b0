// Package session runs the single shared booking board. Every operation is
// executed on one goroutine, in arrival order, so each check-then-act is
// atomic with respect to every other operation. Calendar I/O happens outside
// that goroutine and re-enters it to record the outcome.
package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/engine"
	"github.com/DoyleJ11/slot-draft-backend/internal/hub"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

type Msg interface{ isSessionMsg() }

// call runs fn on the session goroutine and reports its error.
type call struct {
	fn   func() error
	err  error
	done chan struct{}
}

func (*call) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type Config struct {
	Directory *directory.Directory
	Calendar  calendar.Inserter
	// CalendarIDs maps a floor ("1F") to the calendar its slots go to.
	CalendarIDs map[string]string
	// Admin is the only user allowed to delete slots and add them by hand.
	// Empty disables admin actions.
	Admin             string
	WeekMode          slot.WeekMode
	Location          *time.Location
	CommitConcurrency int
	InsertTimeout     time.Duration
	Logger            *zap.Logger
	// Now and Shuffle are overridable for tests.
	Now     func() time.Time
	Shuffle func([]string)
}

// View is a consistent copy of the session for readers outside the loop.
type View struct {
	State      engine.State
	Phase      engine.Phase
	Turn       string
	WeekMode   slot.WeekMode
	NumClients int
	Committing bool
	Holds      int
}

type Session struct {
	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	closed chan struct{}

	state    engine.State
	weekMode slot.WeekMode
	hub      *hub.Hub

	// committing is set while a batch of calendar inserts is in flight.
	committing bool
	// holds reserves slots whose manual add is waiting on the calendar.
	holds map[slot.ID]struct{}

	dir         *directory.Directory
	cal         calendar.Inserter
	calendarIDs map[slot.Floor]string
	admin       string
	loc         *time.Location
	limit       int
	timeout     time.Duration
	now         func() time.Time
	shuffle     func([]string)
	log         *zap.Logger
}

func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	limit := cfg.CommitConcurrency
	if limit <= 0 {
		limit = 4
	}
	timeout := cfg.InsertTimeout
	if timeout <= 0 {
		timeout = calendar.DefaultTimeout
	}
	mode := cfg.WeekMode
	if !mode.Valid() {
		mode = slot.DefaultWeekMode
	}

	ids := make(map[slot.Floor]string, len(cfg.CalendarIDs))
	for floor, id := range cfg.CalendarIDs {
		ids[slot.Floor(floor)] = id
	}

	s := &Session{
		inbox:       make(chan Msg, 64),
		ctx:         ctx,
		cancel:      cancel,
		closed:      make(chan struct{}),
		state:       engine.NewEmptyState(),
		weekMode:    mode,
		hub:         hub.NewHub(log.Named("hub")),
		holds:       make(map[slot.ID]struct{}),
		dir:         cfg.Directory,
		cal:         cfg.Calendar,
		calendarIDs: ids,
		admin:       cfg.Admin,
		loc:         loc,
		limit:       limit,
		timeout:     timeout,
		now:         now,
		shuffle:     cfg.Shuffle,
		log:         log,
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.closed)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case *call:
				s.run(msg)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// run isolates a failing operation: a panic fails that call with ErrInternal
// and the loop keeps serving.
func (s *Session) run(c *call) {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("operation panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			c.err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	c.err = c.fn()
}

func (s *Session) shutdown() {
	s.hub.CloseAll()
	s.cancel()
}

// do executes fn on the session goroutine. Once fn is queued do waits for it
// to finish even if ctx ends, so fn never races with its caller.
func (s *Session) do(ctx context.Context, fn func() error) error {
	c := &call{fn: fn, done: make(chan struct{})}
	select {
	case s.inbox <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrClosed
	}
	select {
	case <-c.done:
		return c.err
	case <-s.closed:
		return ErrClosed
	}
}

// Close stops the loop and closes every client outbox.
func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.closed:
		return
	}
	<-s.closed
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.closed }

func (s *Session) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() error {
		st := engine.NewEmptyState()
		for k, val := range s.state.Confirmed {
			st.Confirmed[k] = val
		}
		for k, val := range s.state.Pending {
			st.Pending[k] = val
		}
		st.TurnOrder = append([]string(nil), s.state.TurnOrder...)
		st.Cursor = s.state.Cursor

		v = View{
			State:      st,
			Phase:      engine.DerivePhase(s.state),
			Turn:       engine.CurrentTurn(s.state),
			WeekMode:   s.weekMode,
			NumClients: s.hub.Len(),
			Committing: s.committing,
			Holds:      len(s.holds),
		}
		return nil
	})
	return v, err
}
