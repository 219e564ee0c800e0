package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

type fakeStore struct {
	mu       sync.Mutex
	failBulk bool
	calls    int
	stored   []model.ProctoringEvent
}

func (s *fakeStore) Append(_ context.Context, events ...model.ProctoringEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failBulk && len(events) > 1 {
		return errors.New("copy failed")
	}
	s.stored = append(s.stored, events...)
	return nil
}

func event(sid uuid.UUID, confidence float64) model.ProctoringEvent {
	return model.ProctoringEvent{
		SessionID:  sid,
		Type:       model.EventTabSwitch,
		Confidence: confidence,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFlushSafe(t *testing.T) {
	sid := uuid.New()

	tests := []struct {
		name       string
		failBulk   bool
		batch      []model.ProctoringEvent
		wantStored int
		wantCalls  int
	}{
		{"bulk path", false, []model.ProctoringEvent{event(sid, 1), event(sid, 0.5)}, 2, 1},
		{"fallback after bulk failure", true, []model.ProctoringEvent{event(sid, 1), event(sid, 0.5), event(sid, 0.2)}, 3, 4},
		{"invalid event dropped in fallback", false, []model.ProctoringEvent{event(sid, 1), event(sid, 7), event(sid, 0.3)}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{failBulk: tt.failBulk}
			w := NewProctoringWorker(store, nil, zerolog.Nop())
			w.flushSafe(context.Background(), tt.batch)

			if len(store.stored) != tt.wantStored {
				t.Errorf("stored = %d, want %d", len(store.stored), tt.wantStored)
			}
			if store.calls != tt.wantCalls {
				t.Errorf("store calls = %d, want %d", store.calls, tt.wantCalls)
			}
		})
	}
}
