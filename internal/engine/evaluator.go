package engine

import (
	"strings"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

// Short-answer grading thresholds on the keyword-coverage fraction.
const (
	ShortAnswerCorrectThreshold = 0.75
	ShortAnswerPartialThreshold = 0.35
)

// Evaluation is the graded outcome of one answer.
type Evaluation struct {
	Correct         bool          `json:"correct"`
	Verdict         model.Verdict `json:"verdict"`
	Fraction        float64       `json:"fraction"`
	Feedback        string        `json:"feedback"`
	ReferenceAnswer string        `json:"reference_answer"`
	MatchedTerms    []string      `json:"matched_terms,omitempty"`
	MissingTerms    []string      `json:"missing_terms,omitempty"`
}

// Evaluate grades answer against the question's reference answer(s). It never
// fails: empty or nonsense answers are graded incorrect with feedback.
func Evaluate(q *model.Question, answer string) Evaluation {
	var ev Evaluation
	switch {
	case strings.TrimSpace(answer) == "":
		ev = Evaluation{Verdict: model.VerdictIncorrect, Feedback: "No answer submitted."}
	case q.Kind == model.QuestionKindMultipleChoice && q.MultipleChoice != nil:
		ev = evaluateMultipleChoice(q.MultipleChoice, answer)
	case q.Kind == model.QuestionKindFillBlank && q.FillBlank != nil:
		ev = evaluateFillBlank(q.FillBlank, answer)
	case q.Kind == model.QuestionKindShortAnswer && q.ShortAnswer != nil:
		ev = evaluateShortAnswer(q.ShortAnswer, answer)
	default:
		ev = Evaluation{Verdict: model.VerdictIncorrect, Feedback: "This question cannot be graded."}
	}

	ev.ReferenceAnswer = q.ReferenceAnswer()
	if q.Explanation != "" {
		ev.Feedback = strings.TrimSpace(ev.Feedback + " " + q.Explanation)
	}
	return ev
}

func evaluateMultipleChoice(key *model.MultipleChoiceKey, answer string) Evaluation {
	if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(key.Correct)) {
		return correct("Correct.")
	}
	return incorrect("Incorrect. The correct option is \"" + strings.TrimSpace(key.Correct) + "\".")
}

func evaluateFillBlank(key *model.FillBlankKey, answer string) Evaluation {
	got := normalize(answer)
	for _, alt := range key.Accepted {
		if want := normalize(alt); want != "" && want == got {
			return correct("Correct.")
		}
	}
	return incorrect("Incorrect.")
}

func evaluateShortAnswer(key *model.ShortAnswerKey, answer string) Evaluation {
	terms := shortAnswerTerms(key)
	if len(terms) == 0 {
		// Nothing to match terms against; fall back to a normalized exact match.
		if normalize(answer) == normalize(key.ModelAnswer) {
			return correct("Correct.")
		}
		return incorrect("Incorrect.")
	}

	text := newTokenText(answer)
	var matched, missing []string
	for _, term := range terms {
		if text.containsPhrase(term) {
			matched = append(matched, term)
		} else {
			missing = append(missing, term)
		}
	}
	coverage := float64(len(matched)) / float64(len(terms))

	var ev Evaluation
	switch {
	case coverage >= ShortAnswerCorrectThreshold:
		ev = correct("Correct.")
	case coverage >= ShortAnswerPartialThreshold:
		ev = Evaluation{Verdict: model.VerdictPartial, Fraction: coverage, Feedback: "Partially correct."}
	default:
		ev = incorrect("Incorrect.")
	}
	ev.MatchedTerms = matched
	ev.MissingTerms = missing

	var b strings.Builder
	b.WriteString(ev.Feedback)
	if len(matched) > 0 {
		b.WriteString(" Key terms covered: " + strings.Join(matched, ", ") + ".")
	}
	if len(missing) > 0 {
		b.WriteString(" Missing key terms: " + strings.Join(missing, ", ") + ".")
	}
	ev.Feedback = b.String()
	return ev
}

// shortAnswerTerms returns the normalized, distinct key terms of a short answer.
func shortAnswerTerms(key *model.ShortAnswerKey) []string {
	if len(key.Keywords) == 0 {
		return contentWords(key.ModelAnswer)
	}
	seen := make(map[string]struct{}, len(key.Keywords))
	terms := make([]string, 0, len(key.Keywords))
	for _, kw := range key.Keywords {
		t := strings.Join(tokenize(kw), " ")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

func correct(feedback string) Evaluation {
	return Evaluation{Correct: true, Verdict: model.VerdictCorrect, Fraction: 1, Feedback: feedback}
}

func incorrect(feedback string) Evaluation {
	return Evaluation{Verdict: model.VerdictIncorrect, Fraction: 0, Feedback: feedback}
}
