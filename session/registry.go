// Package session provides the registry that correlates long-lived SSE
// streams with the POST side-channel used to submit requests for them.
//
// Each streaming connection owns exactly one Session. The POST handler
// enqueues dispatcher output onto the session's queue; the stream's drain
// loop takes messages off the queue in FIFO order. The registry is the only
// state shared between those two sides and all of its operations are atomic.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session ID does not exist in the registry,
// typically because the stream already closed and the session was reaped.
var ErrNotFound = errors.New("session not found")

// DefaultQueueSize is the number of outbound messages a session buffers
// before Enqueue starts blocking the POST side.
const DefaultQueueSize = 32

// Session holds the server-side state of one SSE stream.
type Session struct {
	// ID is the opaque token clients echo back via the session_id query
	// parameter.
	ID string

	// Created is the time the stream was accepted.
	Created time.Time

	// queue carries serialized JSON-RPC payloads to the drain loop.
	// The channel is closed exactly once, by Remove.
	queue chan []byte
}

// Messages returns the receive side of the session's outbound queue.
// The channel is closed when the session is removed.
func (s *Session) Messages() <-chan []byte {
	return s.queue
}

// Registry owns the session_id -> Session map.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	lastSeen  map[string]time.Time
	queueSize int
}

// Option configures a Registry.
type Option func(*Registry)

// WithQueueSize sets the per-session outbound queue capacity.
func WithQueueSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// NewRegistry creates an empty session registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		sessions:  make(map[string]*Session),
		lastSeen:  make(map[string]time.Time),
		queueSize: DefaultQueueSize,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Create allocates a new session with a unique ID and an empty queue.
func (r *Registry) Create() *Session {
	now := time.Now()
	s := &Session{
		ID:      uuid.NewString(),
		Created: now,
		queue:   make(chan []byte, r.queueSize),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.lastSeen[s.ID] = now
	r.mu.Unlock()

	return s
}

// Get returns the session for the given ID, or ErrNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Enqueue appends a message to the session's queue and records activity.
// Enqueueing onto a removed session fails with ErrNotFound rather than
// reviving it.
func (r *Registry) Enqueue(id string, message []byte) (err error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		r.lastSeen[id] = time.Now()
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	// The send happens outside the lock so a full queue blocks only this
	// caller, not the whole registry. Remove can close the queue while a
	// send is pending here, either in the check/send window or with the
	// sender blocked on a full queue; the resulting panic is converted to
	// ErrNotFound so the caller never sees success for a dropped message.
	defer func() {
		if recover() != nil {
			err = ErrNotFound
		}
	}()
	select {
	case s.queue <- message:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("session queue full")
	}
}

// Touch updates the session's last-activity timestamp.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	if _, ok := r.sessions[id]; ok {
		r.lastSeen[id] = time.Now()
	}
	r.mu.Unlock()
}

// Remove discards the session and closes its queue, waking any blocked
// drain loop. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		delete(r.lastSeen, id)
	}
	r.mu.Unlock()

	if ok {
		close(s.queue)
	}
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stale returns the IDs of sessions with no activity since the cutoff.
func (r *Registry) Stale(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, seen := range r.lastSeen {
		if seen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// StartReaper launches a background loop that removes sessions idle longer
// than maxIdle. The returned stop function terminates the loop; it is safe
// to call more than once.
func (r *Registry) StartReaper(interval, maxIdle time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, id := range r.Stale(maxIdle) {
					r.Remove(id)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
