package model

import (
	"time"

	"github.com/google/uuid"
)

// Verdict classifies a graded answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictPartial   Verdict = "partial"
	VerdictIncorrect Verdict = "incorrect"
)

// AnswerRecord is one graded submission. Records are append-only.
type AnswerRecord struct {
	SessionID        uuid.UUID `json:"session_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	Sequence         int       `json:"sequence"`
	Tier             Tier      `json:"difficulty"`
	Topic            string    `json:"topic"`
	Answer           string    `json:"answer"`
	Correct          bool      `json:"correct"`
	Verdict          Verdict   `json:"verdict"`
	Fraction         float64   `json:"fraction"`
	Points           float64   `json:"points"`
	MaxPoints        float64   `json:"max_points"`
	TimeSpentSeconds float64   `json:"time_spent_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
