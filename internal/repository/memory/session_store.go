package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

// SessionStore keeps sessions in a map. Callers always receive copies.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*model.ExamSession
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
}

// Create stores a new session at version 1.
func (r *SessionStore) Create(_ context.Context, s *model.ExamSession) error {
	s.Version = 1
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Answers == nil {
		s.Answers = []model.AnswerRecord{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

// Get returns a copy of the stored session.
func (r *SessionStore) Get(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.Clone(), nil
}

// ApplySubmission replaces the stored session with s plus rec, provided the
// stored version still equals expectedVersion.
func (r *SessionStore) ApplySubmission(_ context.Context, s *model.ExamSession, rec model.AnswerRecord, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	next := s.Clone()
	next.Answers = append(cur.Clone().Answers, rec)
	next.Version = expectedVersion + 1
	next.CreatedAt = cur.CreatedAt
	r.sessions[s.ID] = next

	s.Version = next.Version
	return nil
}
