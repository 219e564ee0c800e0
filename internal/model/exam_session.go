package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// CompletionReason records why a session reached the completed state.
type CompletionReason string

const (
	CompletionQuotaReached  CompletionReason = "quota_reached"
	CompletionBankExhausted CompletionReason = "bank_exhausted"
)

// ExamSession represents one adaptive exam attempt.
type ExamSession struct {
	ID                uuid.UUID         `json:"id"`
	StudentID         string            `json:"student_id"`
	BankID            uuid.UUID         `json:"bank_id"`
	Topic             string            `json:"topic,omitempty"`
	QuestionQuota     int               `json:"question_quota"`
	ServedQuestionIDs []uuid.UUID       `json:"served_question_ids"`
	CurrentQuestionID *uuid.UUID        `json:"current_question_id,omitempty"`
	CurrentTier       Tier              `json:"current_tier"`
	Score             float64           `json:"score"`
	MaxScore          float64           `json:"max_score"`
	Status            SessionStatus     `json:"status"`
	CompletionReason  *CompletionReason `json:"completion_reason,omitempty"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Answers           []AnswerRecord    `json:"answers"`
}

// IsCompleted reports whether the session reached its terminal state.
func (s *ExamSession) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *ExamSession) Clone() *ExamSession {
	c := *s
	c.ServedQuestionIDs = slices.Clone(s.ServedQuestionIDs)
	c.Answers = slices.Clone(s.Answers)
	if s.CurrentQuestionID != nil {
		id := *s.CurrentQuestionID
		c.CurrentQuestionID = &id
	}
	if s.CompletionReason != nil {
		r := *s.CompletionReason
		c.CompletionReason = &r
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// StartSessionRequest is the payload for starting an adaptive exam.
type StartSessionRequest struct {
	BankID string `json:"bank_id" binding:"required,uuid"`
	Topic  string `json:"topic" binding:"omitempty,max=100"`
}

// SubmitAnswerRequest is the payload for answering the outstanding question.
type SubmitAnswerRequest struct {
	QuestionID       string   `json:"question_id" binding:"required,uuid"`
	Answer           string   `json:"answer" binding:"max=5000"`
	SelectedOption   *int     `json:"selected_option" binding:"omitempty,min=0"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds" binding:"required,min=0,max=86400"`
}
