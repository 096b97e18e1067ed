// session owns one calendar per page load. Clicks are queued and handled one at a time by
// the session's event loop, each running to completion before the next.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"advent/calendar"
	"advent/canvas"
	appLog "advent/log"
	"advent/snowflake"
)

var (
	// ErrClosed is returned when clicking a session that has been closed.
	ErrClosed = errors.New("session closed")
	// ErrUnknownSession is returned for ids the registry does not hold.
	ErrUnknownSession = errors.New("unknown session")
)

// Options configures every session of a registry.
type Options struct {
	// RequireDraw keeps a cell closed when its snowflake could not be drawn.
	RequireDraw bool
	// QueueSize bounds the number of pending clicks.
	QueueSize int
}

type clickRequest struct {
	day   int
	reply chan clickReply // nil when nobody waits
}

type clickReply struct {
	click calendar.Click
	err   error
}

// Session is a calendar grid with its mounted canvases and its event loop.
type Session struct {
	id       string
	grid     *calendar.Grid
	canvases map[int]*canvas.Canvas
	rng      snowflake.Rand

	clicks    chan clickRequest
	snapshots chan []calendar.Cell
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	lastSeen time.Time
	clients  int
}

// New creates a session and mounts a canvas on each of its cells.
// rng is used only by the event loop.
func New(id string, rng snowflake.Rand, opts Options) *Session {
	var clickOpts []calendar.ClickOption
	if opts.RequireDraw {
		clickOpts = append(clickOpts, calendar.RequireDraw())
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = calendar.Days
	}

	s := &Session{
		id:        id,
		grid:      calendar.NewGrid(clickOpts...),
		canvases:  make(map[int]*canvas.Canvas, calendar.Days),
		rng:       rng,
		clicks:    make(chan clickRequest, opts.QueueSize),
		snapshots: make(chan []calendar.Cell, 1),
		done:      make(chan struct{}),
		lastSeen:  time.Now(),
	}
	s.grid.Mount(func(day int) snowflake.Canvas {
		c := canvas.New(snowflake.SurfaceWidth, snowflake.SurfaceHeight)
		s.canvases[day] = c
		return c
	})
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Cells returns a snapshot of the session's cells.
func (s *Session) Cells() []calendar.Cell { return s.grid.Cells() }

// Canvas returns the drawing surface of a day.
func (s *Session) Canvas(day int) (*canvas.Canvas, bool) {
	c, ok := s.canvases[day]
	return c, ok
}

// Snapshots delivers the cells after every change. Only the latest snapshot is kept
// when nobody is reading; each snapshot describes the whole grid.
func (s *Session) Snapshots() <-chan []calendar.Cell { return s.snapshots }

// Click queues a click on day without waiting for it to be handled.
func (s *Session) Click(day int) error {
	return s.enqueue(clickRequest{day: day})
}

// Open queues a click on day and waits for its outcome.
func (s *Session) Open(ctx context.Context, day int) (calendar.Click, error) {
	reply := make(chan clickReply, 1)
	if err := s.enqueue(clickRequest{day: day, reply: reply}); err != nil {
		return calendar.Click{}, err
	}
	select {
	case r := <-reply:
		return r.click, r.err
	case <-s.done:
		return calendar.Click{}, ErrClosed
	case <-ctx.Done():
		return calendar.Click{}, ctx.Err()
	}
}

func (s *Session) enqueue(req clickRequest) error {
	s.touch()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.clicks <- req:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Resync publishes the current cells, e.g. for a client that just connected.
func (s *Session) Resync() {
	s.publish(s.grid.Cells())
}

// Run handles queued clicks until ctx is cancelled or the session is closed.
// On return the session is closed and the snapshot channel with it.
func (s *Session) Run(ctx context.Context) {
	defer func() {
		s.Close()
		s.mu.Lock()
		close(s.snapshots)
		s.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case req := <-s.clicks:
			click, err := s.handle(req.day)
			if req.reply != nil {
				req.reply <- clickReply{click, err}
			}
		}
	}
}

func (s *Session) handle(day int) (calendar.Click, error) {
	click, err := s.grid.Click(day, s.rng)
	if err != nil {
		appLog.Error("click rejected", err, "session", s.id, "day", day)
		return click, err
	}
	if click.AlreadyOpen {
		appLog.Debug("cell already open", "session", s.id, "day", day)
		return click, nil
	}
	if click.Skipped() {
		appLog.Debug("snowflake draw skipped", "session", s.id, "day", day, "reason", click.DrawErr, "opened", click.Opened)
	} else {
		appLog.Info("cell opened", "session", s.id, "day", day, "snowflakes", len(click.Drawn))
	}

	s.publish(s.grid.Cells())
	return click, nil
}

// publish replaces any unread snapshot with cells. Only the event loop and Resync call it,
// and a stale snapshot is always superseded by a newer one.
func (s *Session) publish(cells []calendar.Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.snapshots <- cells:
	default:
		select {
		case <-s.snapshots:
		default:
		}
		s.snapshots <- cells
	}
}

// Attach records a connected client. Snapshots go to a single consumer, so it reports
// false, recording nothing, when a client is already attached.
func (s *Session) Attach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients > 0 {
		return false
	}
	s.clients++
	s.lastSeen = time.Now()
	return true
}

// Detach records a disconnected client.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients > 0 {
		s.clients--
	}
	s.lastSeen = time.Now()
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// Idle reports whether no client is attached and nothing happened since before now-maxIdle.
func (s *Session) Idle(now time.Time, maxIdle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients == 0 && now.Sub(s.lastSeen) > maxIdle
}

// Close stops the event loop and unmounts the canvases. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()

		s.grid.Unmount()
		for _, c := range s.canvases {
			c.Detach()
		}
	})
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s)", s.id)
}
