package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	appLog "advent/log"
	"advent/snowflake"

	"github.com/robfig/cron/v3"
)

// Registry holds the live sessions. Sessions live from page render until they are
// swept for idleness; a session with an attached client is never idle.
type Registry struct {
	ctx     context.Context
	opts    Options
	newRand func() snowflake.Rand

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. Session loops stop when ctx is cancelled.
// newRand is called once per session.
func NewRegistry(
	ctx context.Context,
	opts Options,
	newRand func() snowflake.Rand,
) *Registry {
	return &Registry{
		ctx:      ctx,
		opts:     opts,
		newRand:  newRand,
		sessions: map[string]*Session{},
	}
}

// Create starts a new session.
func (reg *Registry) Create() (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	sess := New(id, reg.newRand(), reg.opts)
	reg.mu.Lock()
	reg.sessions[id] = sess
	reg.mu.Unlock()

	go sess.Run(reg.ctx)
	appLog.Debug("session created", "session", id)
	return sess, nil
}

// Get returns the session with the given id.
func (reg *Registry) Get(id string) (*Session, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	sess, ok := reg.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

// Remove closes and forgets a session.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	sess, ok := reg.sessions[id]
	delete(reg.sessions, id)
	reg.mu.Unlock()

	if ok {
		sess.Close()
		appLog.Debug("session removed", "session", id)
	}
}

// Len returns the number of live sessions.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

// Sweep removes sessions that have been idle longer than maxIdle, returning how many.
func (reg *Registry) Sweep(now time.Time, maxIdle time.Duration) int {
	var idle []string
	reg.mu.Lock()
	for id, sess := range reg.sessions {
		if sess.Idle(now, maxIdle) {
			idle = append(idle, id)
		}
	}
	reg.mu.Unlock()

	for _, id := range idle {
		reg.Remove(id)
	}
	if len(idle) > 0 {
		appLog.Info("swept idle sessions", "count", len(idle), "remaining", reg.Len())
	}
	return len(idle)
}

// StartSweeper runs Sweep on the given cron schedule (e.g. "@every 1m") until stop is called.
func (reg *Registry) StartSweeper(schedule string, maxIdle time.Duration) (stop func(), err error) {
	c := cron.New()
	if _, err = c.AddFunc(schedule, func() {
		reg.Sweep(time.Now(), maxIdle)
	}); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

// Close removes every session.
func (reg *Registry) Close() {
	reg.mu.Lock()
	ids := make([]string, 0, len(reg.sessions))
	for id := range reg.sessions {
		ids = append(ids, id)
	}
	reg.mu.Unlock()

	for _, id := range ids {
		reg.Remove(id)
	}
}

func newID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
