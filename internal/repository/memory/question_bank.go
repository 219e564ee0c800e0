// Package memory holds in-process implementations of the storage contracts.
// They back STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

// QuestionBank is an immutable-after-load question store.
type QuestionBank struct {
	mu        sync.RWMutex
	banks     map[uuid.UUID]model.QuestionBank
	questions map[uuid.UUID][]model.Question // by bank, sorted by position
	byID      map[uuid.UUID]model.Question
}

// NewQuestionBank creates an empty QuestionBank.
func NewQuestionBank() *QuestionBank {
	return &QuestionBank{
		banks:     make(map[uuid.UUID]model.QuestionBank),
		questions: make(map[uuid.UUID][]model.Question),
		byID:      make(map[uuid.UUID]model.Question),
	}
}

// CreateBank validates and stores a bank with its questions.
func (r *QuestionBank) CreateBank(_ context.Context, bank *model.QuestionBank, questions []model.Question) error {
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", questions[i].Position, err)
		}
	}
	if bank.ID == uuid.Nil {
		bank.ID = uuid.New()
	}
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = time.Now().UTC()
	}

	stored := make([]model.Question, len(questions))
	for i := range questions {
		if questions[i].ID == uuid.Nil {
			questions[i].ID = uuid.New()
		}
		questions[i].BankID = bank.ID
		stored[i] = questions[i]
	}
	slices.SortStableFunc(stored, func(a, b model.Question) int { return a.Position - b.Position })

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.banks[bank.ID]; exists {
		return fmt.Errorf("bank %s already exists", bank.ID)
	}
	r.banks[bank.ID] = *bank
	r.questions[bank.ID] = stored
	for _, q := range stored {
		r.byID[q.ID] = q
	}
	return nil
}

// GetBank retrieves a bank by ID.
func (r *QuestionBank) GetBank(_ context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.banks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

// GetQuestion returns the first unseen question of a tier in position order.
func (r *QuestionBank) GetQuestion(_ context.Context, bankID uuid.UUID, q model.QuestionQuery) (*model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, question := range r.questions[bankID] {
		if question.Tier != q.Tier || slices.Contains(q.Exclude, question.ID) {
			continue
		}
		if q.Topic != "" && !strings.EqualFold(question.Topic, q.Topic) {
			continue
		}
		found := question
		return &found, nil
	}
	return nil, repository.ErrNotFound
}

// GetQuestionByID retrieves a single question.
func (r *QuestionBank) GetQuestionByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

// CountRemaining counts the unseen questions of a tier, any topic.
func (r *QuestionBank) CountRemaining(_ context.Context, bankID uuid.UUID, tier model.Tier, exclude []uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, q := range r.questions[bankID] {
		if q.Tier == tier && !slices.Contains(exclude, q.ID) {
			n++
		}
	}
	return n, nil
}
