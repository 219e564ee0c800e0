package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// EventLog is an append-only per-session proctoring log.
type EventLog struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]model.ProctoringEvent
}

// NewEventLog creates an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{events: make(map[uuid.UUID][]model.ProctoringEvent)}
}

// Append adds events to their sessions' logs.
func (l *EventLog) Append(_ context.Context, events ...model.ProctoringEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range events {
		l.events[ev.SessionID] = append(l.events[ev.SessionID], ev)
	}
	return nil
}

// ListBySession returns a snapshot of a session's log in arrival order.
func (l *EventLog) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.ProctoringEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := slices.Clone(l.events[sessionID])
	if out == nil {
		out = []model.ProctoringEvent{}
	}
	return out, nil
}
