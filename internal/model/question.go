package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QuestionKind is the tag of the Question variant.
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "multiple_choice"
	QuestionKindFillBlank      QuestionKind = "fill_blank"
	QuestionKindShortAnswer    QuestionKind = "short_answer"
)

// Valid reports whether k is a known question kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionKindMultipleChoice, QuestionKindFillBlank, QuestionKindShortAnswer:
		return true
	}
	return false
}

// Question represents a single published question. Exactly one answer key is
// set and it matches Kind; Validate enforces that at ingestion time.
type Question struct {
	ID          uuid.UUID    `json:"id"`
	BankID      uuid.UUID    `json:"bank_id"`
	Kind        QuestionKind `json:"kind"`
	Tier        Tier         `json:"difficulty"`
	Topic       string       `json:"topic"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation,omitempty"`
	Position    int          `json:"position"`

	MultipleChoice *MultipleChoiceKey `json:"multiple_choice,omitempty"`
	FillBlank      *FillBlankKey      `json:"fill_blank,omitempty"`
	ShortAnswer    *ShortAnswerKey    `json:"short_answer,omitempty"`
}

// MultipleChoiceKey holds the ordered options and the text of the correct one.
type MultipleChoiceKey struct {
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// FillBlankKey holds every accepted alternative for the blank.
type FillBlankKey struct {
	Accepted []string `json:"accepted"`
}

// ShortAnswerKey holds the model answer and the key terms graded against it.
// An empty keyword set means the terms are derived from the model answer.
type ShortAnswerKey struct {
	ModelAnswer string   `json:"model_answer"`
	Keywords    []string `json:"keywords,omitempty"`
}

// PublicQuestion is the shape delivered to test-takers (no answer key).
type PublicQuestion struct {
	ID      uuid.UUID    `json:"id"`
	Kind    QuestionKind `json:"kind"`
	Tier    Tier         `json:"difficulty"`
	Topic   string       `json:"topic"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
}

// QuestionQuery selects an unseen question from a bank.
type QuestionQuery struct {
	Tier    Tier
	Topic   string // empty means any topic
	Exclude []uuid.UUID
}

var errQuestionKey = errors.New("answer key does not match question kind")

// Validate checks the canonical shape of the question.
func (q *Question) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}
	if !q.Tier.Valid() {
		return fmt.Errorf("unknown difficulty %q", q.Tier)
	}
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}

	keys := 0
	for _, set := range []bool{q.MultipleChoice != nil, q.FillBlank != nil, q.ShortAnswer != nil} {
		if set {
			keys++
		}
	}
	if keys != 1 {
		return errQuestionKey
	}

	switch q.Kind {
	case QuestionKindMultipleChoice:
		if q.MultipleChoice == nil {
			return errQuestionKey
		}
		if len(q.MultipleChoice.Options) < 2 {
			return errors.New("multiple choice question needs at least two options")
		}
		if q.MultipleChoice.OptionIndex(q.MultipleChoice.Correct) < 0 {
			return errors.New("correct option is not one of the options")
		}
	case QuestionKindFillBlank:
		if q.FillBlank == nil {
			return errQuestionKey
		}
		for _, alt := range q.FillBlank.Accepted {
			if strings.TrimSpace(alt) != "" {
				return nil
			}
		}
		return errors.New("fill blank question needs at least one accepted answer")
	case QuestionKindShortAnswer:
		if q.ShortAnswer == nil {
			return errQuestionKey
		}
		if strings.TrimSpace(q.ShortAnswer.ModelAnswer) == "" {
			return errors.New("short answer question needs a model answer")
		}
	}
	return nil
}

// OptionIndex returns the index of the option matching text (trimmed,
// case-insensitive), or -1.
func (k *MultipleChoiceKey) OptionIndex(text string) int {
	want := strings.TrimSpace(text)
	if want == "" {
		return -1
	}
	for i, opt := range k.Options {
		if strings.EqualFold(strings.TrimSpace(opt), want) {
			return i
		}
	}
	return -1
}

// ReferenceAnswer returns the answer text shown to the test-taker after grading.
func (q *Question) ReferenceAnswer() string {
	switch {
	case q.MultipleChoice != nil:
		return q.MultipleChoice.Correct
	case q.FillBlank != nil:
		for _, alt := range q.FillBlank.Accepted {
			if s := strings.TrimSpace(alt); s != "" {
				return s
			}
		}
	case q.ShortAnswer != nil:
		return q.ShortAnswer.ModelAnswer
	}
	return ""
}

// Public strips the answer key.
func (q *Question) Public() *PublicQuestion {
	pq := &PublicQuestion{
		ID:    q.ID,
		Kind:  q.Kind,
		Tier:  q.Tier,
		Topic: q.Topic,
		Text:  q.Text,
	}
	if q.MultipleChoice != nil {
		pq.Options = append([]string(nil), q.MultipleChoice.Options...)
	}
	return pq
}

// KeyJSON encodes the answer key of the active variant for storage.
func (q *Question) KeyJSON() ([]byte, error) {
	switch q.Kind {
	case QuestionKindMultipleChoice:
		return json.Marshal(q.MultipleChoice)
	case QuestionKindFillBlank:
		return json.Marshal(q.FillBlank)
	case QuestionKindShortAnswer:
		return json.Marshal(q.ShortAnswer)
	}
	return nil, fmt.Errorf("unknown question kind %q", q.Kind)
}

// SetKeyJSON decodes a stored answer key into the variant selected by Kind.
func (q *Question) SetKeyJSON(raw []byte) error {
	q.MultipleChoice, q.FillBlank, q.ShortAnswer = nil, nil, nil
	switch q.Kind {
	case QuestionKindMultipleChoice:
		q.MultipleChoice = &MultipleChoiceKey{}
		return json.Unmarshal(raw, q.MultipleChoice)
	case QuestionKindFillBlank:
		q.FillBlank = &FillBlankKey{}
		return json.Unmarshal(raw, q.FillBlank)
	case QuestionKindShortAnswer:
		q.ShortAnswer = &ShortAnswerKey{}
		return json.Unmarshal(raw, q.ShortAnswer)
	}
	return fmt.Errorf("unknown question kind %q", q.Kind)
}
