package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionBank represents an immutable collection of published questions.
type QuestionBank struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	QuestionQuota int       `json:"question_quota"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionImport is one entry of a question bank import file.
type QuestionImport struct {
	Kind        QuestionKind `json:"kind"`
	Difficulty  Tier         `json:"difficulty"`
	Topic       string       `json:"topic"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation"`
	Options     []string     `json:"options,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	Accepted    []string     `json:"accepted,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
}

// BankImport is the top-level shape of a question bank import file.
type BankImport struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	QuestionQuota int              `json:"question_quota"`
	Questions     []QuestionImport `json:"questions"`
}

// ToQuestion maps an import entry onto the canonical variant for its kind.
func (qi QuestionImport) ToQuestion(bankID uuid.UUID, position int) Question {
	q := Question{
		ID:          uuid.New(),
		BankID:      bankID,
		Kind:        qi.Kind,
		Tier:        qi.Difficulty,
		Topic:       qi.Topic,
		Text:        qi.Text,
		Explanation: qi.Explanation,
		Position:    position,
	}
	switch qi.Kind {
	case QuestionKindMultipleChoice:
		q.MultipleChoice = &MultipleChoiceKey{Options: qi.Options, Correct: qi.Answer}
	case QuestionKindFillBlank:
		accepted := qi.Accepted
		if len(accepted) == 0 && qi.Answer != "" {
			accepted = []string{qi.Answer}
		}
		q.FillBlank = &FillBlankKey{Accepted: accepted}
	case QuestionKindShortAnswer:
		q.ShortAnswer = &ShortAnswerKey{ModelAnswer: qi.Answer, Keywords: qi.Keywords}
	}
	return q
}
