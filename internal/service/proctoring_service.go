package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// ProctoringService accepts integrity events from test-takers. Ingestion is
// acknowledgement only: events are validated and handed to the sink, and the
// report folds the stored log later.
type ProctoringService struct {
	sessions *ExamSessionService
	sink     EventSink
	monitor  MonitorPublisher
	now      func() time.Time
	log      zerolog.Logger
}

// NewProctoringService creates a new ProctoringService.
func NewProctoringService(sessions *ExamSessionService, sink EventSink, monitor MonitorPublisher, log zerolog.Logger) *ProctoringService {
	return &ProctoringService{
		sessions: sessions,
		sink:     sink,
		monitor:  monitor,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("component", "proctoring_service").Logger(),
	}
}

// Authorize checks that studentID owns the session events are logged for.
// Completed sessions still accept events.
func (s *ProctoringService) Authorize(ctx context.Context, sessionID uuid.UUID, studentID string) (*model.ExamSession, error) {
	return s.sessions.loadOwned(ctx, sessionID, Viewer{StudentID: studentID})
}

// Record stamps and stores one event of an authorized session. A malformed
// event is dropped and reported as not accepted, without an error.
func (s *ProctoringService) Record(ctx context.Context, session *model.ExamSession, req *model.LogProctoringEventRequest) (bool, error) {
	ev := req.ToEvent(session.ID, s.now())
	if err := ev.Validate(); err != nil {
		s.log.Debug().Err(err).Str("session_id", session.ID.String()).Msg("Dropping malformed proctoring event")
		return false, nil
	}

	if err := s.sink.Enqueue(ctx, ev); err != nil {
		return false, fmt.Errorf("enqueue proctoring event: %w", err)
	}

	s.monitor.Publish(ctx, session.BankID, MonitorEvent{
		Type:      MonitorProctoringEvent,
		SessionID: session.ID,
		StudentID: session.StudentID,
		Data: map[string]any{
			"event_type": ev.Type,
			"confidence": ev.Confidence,
			"timestamp":  ev.Timestamp,
		},
		At: ev.ReceivedAt,
	})
	return true, nil
}

// LogEvent authorizes and records a single event.
func (s *ProctoringService) LogEvent(ctx context.Context, sessionID uuid.UUID, studentID string, req *model.LogProctoringEventRequest) (bool, error) {
	session, err := s.Authorize(ctx, sessionID, studentID)
	if err != nil {
		return false, err
	}
	return s.Record(ctx, session, req)
}
