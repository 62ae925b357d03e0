package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadline-platform/pkg/logger"
)

// ErrSessionNotFound is returned for events addressing a call that was
// never started or was already evicted. The boundary surfaces this as a
// rejected request: it indicates an upstream lifecycle bug, so sessions are
// never created implicitly on a speech event.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Registry owns the live call sessions. It replaces a process-global map
// with an injected store that has a defined eviction policy: sessions are
// dropped on an explicit call-ended event, after a grace period past their
// terminal step, or after going idle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTimeout   time.Duration
	terminalGrace time.Duration

	clock func() time.Time
}

func NewRegistry(idleTimeout, terminalGrace time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Minute
	}
	if terminalGrace <= 0 {
		terminalGrace = 2 * time.Minute
	}
	return &Registry{
		sessions:      make(map[string]*Session),
		idleTimeout:   idleTimeout,
		terminalGrace: terminalGrace,
		clock:         time.Now,
	}
}

// Create registers a session for callID, or returns the existing one: call
// identity is idempotent, so a duplicate start event for the same call id
// must not reset an in-flight conversation.
func (r *Registry) Create(callID, from, to string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[callID]; ok {
		return existing
	}
	now := r.clock()
	s := &Session{
		CallID:      callID,
		From:        from,
		To:          to,
		CurrentStep: StepGreeting,
		StartTime:   now,
		LastEventAt: now,
	}
	r.sessions[callID] = s
	return s
}

func (r *Registry) Get(callID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[callID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a session, typically on the telephony layer's call-ended
// callback. Removing an unknown id is a no-op.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts expired sessions and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		completedAt := s.CompletedAt
		lastEventAt := s.LastEventAt
		s.mu.Unlock()

		expired := false
		if !completedAt.IsZero() {
			expired = now.Sub(completedAt) > r.terminalGrace
		} else {
			expired = now.Sub(lastEventAt) > r.idleTimeout
		}
		if expired {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on an interval until ctx is canceled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.From(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(r.clock()); n > 0 {
				log.Debug("evicted call sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
