// Package lock provides per-session submission guards. A guard is acquired
// with TryAcquire and never waits: a held key means another submission for
// the same session is in flight.
package lock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrHeld is returned when the key is already held by another caller.
var ErrHeld = errors.New("lock is held")

// Release frees a previously acquired guard.
type Release func()

// Local is an in-process guard keyed by session ID.
type Local struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewLocal creates a new Local guard.
func NewLocal() *Local {
	return &Local{held: make(map[uuid.UUID]struct{})}
}

// TryAcquire takes the guard for id or returns ErrHeld.
func (l *Local) TryAcquire(_ context.Context, id uuid.UUID) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return nil, ErrHeld
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}
