package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/folio/internal/core"
)

// Factory builds the workflow for a new session id.
type Factory func(id string) *Workflow

type entry struct {
	workflow *Workflow
	lastSeen time.Time
}

// Registry keeps one in-memory session per browser.
// It is bounded: at capacity the least recently seen idle session is evicted,
// and sessions idle for longer than ttl are dropped.
type Registry struct {
	sessions map[string]*entry
	maxSize  int
	ttl      time.Duration
	factory  Factory
	now      func() time.Time
	onResize func(int)
	mu       sync.Mutex
}

// NewRegistry creates a new session registry.
func NewRegistry(maxSize int, ttl time.Duration, factory Factory) *Registry {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Registry{
		sessions: make(map[string]*entry),
		maxSize:  maxSize,
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// OnResize registers a callback invoked with the session count after it changes.
func (r *Registry) OnResize(fn func(int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResize = fn
}

// Create starts a new session.
func (r *Registry) Create() *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	w := r.factory(id)

	for len(r.sessions) >= r.maxSize {
		delete(r.sessions, r.victimLocked())
	}

	r.sessions[id] = &entry{workflow: w, lastSeen: r.now()}
	r.resizedLocked()

	return w
}

// Get returns a live session and marks it as seen.
func (r *Registry) Get(id string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	now := r.now()
	if r.expired(e, now) {
		r.removeLocked(id)
		return nil, core.ErrSessionNotFound
	}
	e.lastSeen = now
	return e.workflow, nil
}

// GetOrCreate returns the session for id, or a new one when id is unknown or expired.
func (r *Registry) GetOrCreate(id string) (w *Workflow, created bool) {
	if id != "" {
		if w, err := r.Get(id); err == nil {
			return w, false
		}
	}
	return r.Create(), true
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if r.expired(e, now) {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	if r.ttl <= 0 {
		return false
	}
	// A session with a request in flight is never idle.
	if e.workflow.Snapshot().Busy {
		return false
	}
	return now.Sub(e.lastSeen) > r.ttl
}

// victimLocked picks the session to evict: the least recently seen idle one,
// or the least recently seen overall when every session is busy.
func (r *Registry) victimLocked() string {
	var idle, oldest string
	var idleSeen, oldestSeen time.Time
	for id, e := range r.sessions {
		if oldest == "" || e.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = id, e.lastSeen
		}
		if e.workflow.Snapshot().Busy {
			continue
		}
		if idle == "" || e.lastSeen.Before(idleSeen) {
			idle, idleSeen = id, e.lastSeen
		}
	}
	if idle != "" {
		return idle
	}
	return oldest
}

func (r *Registry) removeLocked(id string) {
	delete(r.sessions, id)
	r.resizedLocked()
}

func (r *Registry) resizedLocked() {
	if r.onResize != nil {
		r.onResize(len(r.sessions))
	}
}
