package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/lock"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// QuestionBank is the read-only view of published questions.
// Lookups that match nothing return repository.ErrNotFound.
type QuestionBank interface {
	GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error)
	GetQuestion(ctx context.Context, bankID uuid.UUID, q model.QuestionQuery) (*model.Question, error)
	GetQuestionByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	CountRemaining(ctx context.Context, bankID uuid.UUID, tier model.Tier, exclude []uuid.UUID) (int, error)
}

// SessionStore persists exam sessions. ApplySubmission is a compare-and-swap on
// the session version and must write the session and the record atomically.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	ApplySubmission(ctx context.Context, s *model.ExamSession, rec model.AnswerRecord, expectedVersion int) error
}

// EventLog is the per-session append-only proctoring log.
type EventLog interface {
	Append(ctx context.Context, events ...model.ProctoringEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ProctoringEvent, error)
}

// EventSink accepts validated events for eventual storage.
type EventSink interface {
	Enqueue(ctx context.Context, ev model.ProctoringEvent) error
}

// SubmissionGuard serializes submissions per session by rejecting overlap.
type SubmissionGuard interface {
	TryAcquire(ctx context.Context, id uuid.UUID) (lock.Release, error)
}

// DirectSink writes events straight into an EventLog.
type DirectSink struct {
	Log EventLog
}

// Enqueue appends ev to the log.
func (d DirectSink) Enqueue(ctx context.Context, ev model.ProctoringEvent) error {
	return d.Log.Append(ctx, ev)
}
