package minutes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the open sessions by id. Sessions not touched for longer
// than the idle timeout are dropped.
type Registry struct {
	customers CustomerCore
	plans     PlanCore
	idle      time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

func NewRegistry(customers CustomerCore, plans PlanCore, idle time.Duration) *Registry {
	return &Registry{
		customers: customers,
		plans:     plans,
		idle:      idle,
		sessions:  make(map[uuid.UUID]*entry),
	}
}

// Open starts a session for the customer and returns its id.
func (r *Registry) Open(ctx context.Context, customerID int, now time.Time) (uuid.UUID, *Session, error) {
	s, err := Open(ctx, r.customers, r.plans, customerID, now)
	if err != nil {
		return uuid.Nil, nil, err
	}

	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.expire(now)
	r.sessions[id] = &entry{session: s, lastUsed: now}

	return id, s, nil
}

// Do runs fn with the session id while holding the session's lock.
func (r *Registry) Do(id uuid.UUID, now time.Time, fn func(s *Session) error) error {
	r.mu.Lock()
	r.expire(now)
	e, ok := r.sessions[id]
	if ok {
		e.lastUsed = now
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return fn(e.session)
}

// Close drops the session.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)

	return nil
}

// expire must be called with r.mu held.
func (r *Registry) expire(now time.Time) {
	if r.idle <= 0 {
		return
	}
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.idle {
			delete(r.sessions, id)
		}
	}
}
