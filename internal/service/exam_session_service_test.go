package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/lock"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository/memory"
)

const student = "student-1"

type recordingMonitor struct {
	mu     sync.Mutex
	events []MonitorEvent
}

func (m *recordingMonitor) Publish(_ context.Context, _ uuid.UUID, ev MonitorEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *recordingMonitor) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

type failingEventLog struct{}

func (failingEventLog) Append(context.Context, ...model.ProctoringEvent) error {
	return errors.New("event log down")
}

func (failingEventLog) ListBySession(context.Context, uuid.UUID) ([]model.ProctoringEvent, error) {
	return nil, errors.New("event log down")
}

type fixture struct {
	svc      *ExamSessionService
	bank     *memory.QuestionBank
	sessions *memory.SessionStore
	events   *memory.EventLog
	guard    *lock.Local
	monitor  *recordingMonitor
	bankID   uuid.UUID
}

func newFixture(t *testing.T, quota int, questions ...model.Question) *fixture {
	t.Helper()
	f := &fixture{
		bank:     memory.NewQuestionBank(),
		sessions: memory.NewSessionStore(),
		events:   memory.NewEventLog(),
		guard:    lock.NewLocal(),
		monitor:  &recordingMonitor{},
	}
	bank := &model.QuestionBank{Name: "fixture", QuestionQuota: quota}
	if err := f.bank.CreateBank(context.Background(), bank, questions); err != nil {
		t.Fatalf("CreateBank: %v", err)
	}
	f.bankID = bank.ID
	f.svc = NewExamSessionService(f.bank, f.sessions, f.events, f.guard, f.monitor, SessionOptions{}, zerolog.Nop())
	return f
}

func multipleChoice(tier model.Tier, topic string, position int) model.Question {
	return model.Question{
		Kind:     model.QuestionKindMultipleChoice,
		Tier:     tier,
		Topic:    topic,
		Text:     "2 + 2 = ?",
		Position: position,
		MultipleChoice: &model.MultipleChoiceKey{
			Options: []string{"3", "4", "5"},
			Correct: "4",
		},
	}
}

func fillBlank(tier model.Tier, topic string, position int) model.Question {
	return model.Question{
		Kind:      model.QuestionKindFillBlank,
		Tier:      tier,
		Topic:     topic,
		Text:      "The capital of France is ____.",
		Position:  position,
		FillBlank: &model.FillBlankKey{Accepted: []string{"Paris"}},
	}
}

func (f *fixture) start(t *testing.T, topic string) *StartSessionResult {
	t.Helper()
	res, err := f.svc.StartSession(context.Background(), student, f.bankID, topic)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return res
}

func (f *fixture) submit(t *testing.T, sessionID, questionID uuid.UUID, answer string, seconds float64) *SubmitAnswerResult {
	t.Helper()
	res, err := f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:        sessionID,
		StudentID:        student,
		QuestionID:       questionID,
		Answer:           answer,
		TimeSpentSeconds: seconds,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	f.assertScoreInvariant(t, sessionID)
	return res
}

func (f *fixture) assertScoreInvariant(t *testing.T, sessionID uuid.UUID) {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var sum, maxSum float64
	for _, a := range s.Answers {
		sum += a.Points
		maxSum += a.MaxPoints
	}
	if sum != s.Score || maxSum != s.MaxScore {
		t.Fatalf("score %v/%v does not match answer records %v/%v", s.Score, s.MaxScore, sum, maxSum)
	}
	if len(s.ServedQuestionIDs) > s.QuestionQuota {
		t.Fatalf("served %d questions, quota %d", len(s.ServedQuestionIDs), s.QuestionQuota)
	}
}

func TestExamSessionEndToEnd(t *testing.T) {
	f := newFixture(t, 2,
		multipleChoice(model.TierMedium, "arithmetic", 1),
		fillBlank(model.TierHard, "geography", 2),
		fillBlank(model.TierEasy, "geography", 3),
	)

	started := f.start(t, "")
	if started.FirstQuestion.Tier != model.TierMedium {
		t.Fatalf("first tier = %s, want medium", started.FirstQuestion.Tier)
	}
	if started.TotalQuestionsQuota != 2 {
		t.Errorf("quota = %d, want 2", started.TotalQuestionsQuota)
	}
	if started.FirstQuestion.Options == nil {
		t.Error("multiple choice options missing from public question")
	}

	first := f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 0)
	if !first.Correct || first.PointsAwarded != 2 {
		t.Fatalf("first answer = %+v, want correct with 2 points", first)
	}
	if first.NextTier != model.TierHard || first.NextQuestion == nil || first.NextQuestion.Tier != model.TierHard {
		t.Fatalf("next = %s/%v, want hard", first.NextTier, first.NextQuestion)
	}
	if !strings.HasPrefix(first.Feedback, "Excellent! Quick and accurate.") {
		t.Errorf("feedback = %q, want praise prefix", first.Feedback)
	}
	if first.ExamComplete {
		t.Fatal("exam completed after one of two questions")
	}

	second := f.submit(t, started.SessionID, first.NextQuestion.ID, "Berlin", 10)
	if second.Correct || second.PointsAwarded != 0 {
		t.Fatalf("second answer = %+v, want incorrect with 0 points", second)
	}
	if second.NextTier != model.TierMedium {
		t.Errorf("next tier = %s, want medium", second.NextTier)
	}
	if !second.ExamComplete || second.NextQuestion != nil {
		t.Fatalf("exam not completed at quota: %+v", second)
	}
	if *second.CompletionReason != model.CompletionQuotaReached {
		t.Errorf("completion reason = %s, want quota_reached", *second.CompletionReason)
	}

	final := second.FinalScore
	if final.Points != 2 || final.MaxPoints != 5 || final.Percentage != 40 || final.Correct != 1 || final.Total != 2 {
		t.Errorf("final score = %+v", final)
	}

	stored, _ := f.sessions.Get(context.Background(), started.SessionID)
	if !stored.IsCompleted() || stored.CompletedAt == nil || stored.CurrentQuestionID != nil {
		t.Errorf("stored session not completed: %+v", stored)
	}

	want := []string{MonitorSessionStarted, MonitorAnswerSubmitted, MonitorAnswerSubmitted, MonitorSessionCompleted}
	if got := f.monitor.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("monitor events = %v, want %v", got, want)
	}
}

func TestSubmitHugeTimeSpentScoresAtFloor(t *testing.T) {
	for _, seconds := range []float64{1e10, 1e300} {
		f := newFixture(t, 2,
			multipleChoice(model.TierMedium, "", 1),
			fillBlank(model.TierHard, "", 2),
			fillBlank(model.TierEasy, "", 3),
		)
		started := f.start(t, "")

		res := f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", seconds)
		if !res.Correct || res.PointsAwarded != 1 {
			t.Errorf("seconds=%g: points = %v, want 1 (floor multiplier)", seconds, res.PointsAwarded)
		}
		if res.NextTier != model.TierMedium {
			t.Errorf("seconds=%g: next tier = %s, want medium", seconds, res.NextTier)
		}
		if strings.HasPrefix(res.Feedback, fastCorrectPraise) {
			t.Errorf("seconds=%g: slow answer praised: %q", seconds, res.Feedback)
		}
	}
}

func TestSubmitToCompletedSessionConflicts(t *testing.T) {
	f := newFixture(t, 1, multipleChoice(model.TierMedium, "", 1), fillBlank(model.TierHard, "", 2))
	started := f.start(t, "")
	f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 1)

	before, _ := f.sessions.Get(context.Background(), started.SessionID)
	_, err := f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:  started.SessionID,
		StudentID:  student,
		QuestionID: started.FirstQuestion.ID,
		Answer:     "4",
	})
	if !errors.Is(err, ErrConflict) || !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("err = %v, want ErrSessionCompleted", err)
	}

	after, _ := f.sessions.Get(context.Background(), started.SessionID)
	if after.Version != before.Version || after.Score != before.Score || len(after.Answers) != len(before.Answers) {
		t.Errorf("completed session mutated: before %+v after %+v", before, after)
	}
}

func TestSubmitStructuralErrors(t *testing.T) {
	f := newFixture(t, 3,
		multipleChoice(model.TierMedium, "", 1),
		fillBlank(model.TierMedium, "", 2),
		fillBlank(model.TierHard, "", 3),
	)
	started := f.start(t, "")
	outstanding := started.FirstQuestion.ID
	ctx := context.Background()

	option := func(i int) *int { return &i }

	tests := []struct {
		name string
		in   SubmitAnswerInput
		want error
	}{
		{"unknown session", SubmitAnswerInput{SessionID: uuid.New(), StudentID: student, QuestionID: outstanding}, ErrSessionNotFound},
		{"other student", SubmitAnswerInput{SessionID: started.SessionID, StudentID: "intruder", QuestionID: outstanding}, ErrSessionNotFound},
		{"stale question", SubmitAnswerInput{SessionID: started.SessionID, StudentID: student, QuestionID: uuid.New()}, ErrStaleQuestion},
		{"negative time", SubmitAnswerInput{SessionID: started.SessionID, StudentID: student, QuestionID: outstanding, TimeSpentSeconds: -1}, ErrInvalidTimeSpent},
		{"option out of range", SubmitAnswerInput{SessionID: started.SessionID, StudentID: student, QuestionID: outstanding, SelectedOption: option(7)}, ErrOptionOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.SubmitAnswer(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			s, _ := f.sessions.Get(ctx, started.SessionID)
			if len(s.Answers) != 0 || s.Version != 1 {
				t.Errorf("session mutated by rejected submission: %+v", s)
			}
		})
	}
}

func TestSubmitSelectedOption(t *testing.T) {
	f := newFixture(t, 3, multipleChoice(model.TierMedium, "", 1), fillBlank(model.TierMedium, "", 2))
	started := f.start(t, "")
	idx := 1

	res, err := f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:        started.SessionID,
		StudentID:        student,
		QuestionID:       started.FirstQuestion.ID,
		SelectedOption:   &idx,
		TimeSpentSeconds: 50,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.Correct || res.NextTier != model.TierMedium {
		t.Errorf("slow correct option answer = %+v, want correct holding medium", res)
	}

	_, err = f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:      started.SessionID,
		StudentID:      student,
		QuestionID:     res.NextQuestion.ID,
		SelectedOption: &idx,
	})
	if !errors.Is(err, ErrAnswerTypeMismatch) || !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrAnswerTypeMismatch", err)
	}
}

func TestConcurrentSubmissionRejected(t *testing.T) {
	f := newFixture(t, 3, multipleChoice(model.TierMedium, "", 1), fillBlank(model.TierHard, "", 2))
	started := f.start(t, "")

	release, err := f.guard.TryAcquire(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	_, err = f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:  started.SessionID,
		StudentID:  student,
		QuestionID: started.FirstQuestion.ID,
		Answer:     "4",
	})
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("err = %v, want ErrSubmissionInFlight", err)
	}
	release()

	f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 1)
}

func TestConcurrentSubmissionsRecordOnce(t *testing.T) {
	f := newFixture(t, 3, multipleChoice(model.TierMedium, "", 1), fillBlank(model.TierHard, "", 2))
	started := f.start(t, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		start     = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
				SessionID:  started.SessionID,
				StudentID:  student,
				QuestionID: started.FirstQuestion.ID,
				Answer:     "4",
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	s, _ := f.sessions.Get(context.Background(), started.SessionID)
	if len(s.Answers) != 1 {
		t.Errorf("answers = %d, want 1", len(s.Answers))
	}
	f.assertScoreInvariant(t, started.SessionID)
}

func TestQuestionSelectionFallback(t *testing.T) {
	t.Run("topic widens to any topic", func(t *testing.T) {
		f := newFixture(t, 3, multipleChoice(model.TierMedium, "graphs", 1), multipleChoice(model.TierMedium, "sets", 2))
		started := f.start(t, "sets")
		if started.FirstQuestion.Topic != "sets" {
			t.Fatalf("first topic = %q, want sets", started.FirstQuestion.Topic)
		}
		res := f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 59)
		if res.NextQuestion == nil || res.NextQuestion.Topic != "graphs" {
			t.Fatalf("next question = %+v, want the graphs question", res.NextQuestion)
		}
	})

	t.Run("nearest tier breaks ties toward easier", func(t *testing.T) {
		f := newFixture(t, 3,
			multipleChoice(model.TierMedium, "", 1),
			fillBlank(model.TierEasy, "", 2),
		)
		started := f.start(t, "")
		res := f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 0)
		if res.NextTier != model.TierHard {
			t.Fatalf("next tier = %s, want hard", res.NextTier)
		}
		if res.NextQuestion == nil || res.NextQuestion.Tier != model.TierEasy {
			t.Fatalf("next question = %+v, want the easy question", res.NextQuestion)
		}

		view, err := f.svc.GetSession(context.Background(), started.SessionID, Viewer{StudentID: student})
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if view.CurrentTier != model.TierEasy || view.CurrentQuestion.ID != res.NextQuestion.ID {
			t.Errorf("view = %+v, want outstanding easy question", view)
		}
	})

	t.Run("exhausted bank completes early", func(t *testing.T) {
		f := newFixture(t, 5, multipleChoice(model.TierMedium, "", 1))
		started := f.start(t, "")
		res := f.submit(t, started.SessionID, started.FirstQuestion.ID, "3", 5)
		if !res.ExamComplete || *res.CompletionReason != model.CompletionBankExhausted {
			t.Fatalf("result = %+v, want completion by bank exhaustion", res)
		}
	})

	t.Run("first tier falls back when medium is empty", func(t *testing.T) {
		f := newFixture(t, 3, fillBlank(model.TierHard, "", 1), fillBlank(model.TierEasy, "", 2))
		started := f.start(t, "")
		if started.FirstQuestion.Tier != model.TierEasy {
			t.Errorf("first tier = %s, want easy", started.FirstQuestion.Tier)
		}
	})
}

func TestStartSessionErrors(t *testing.T) {
	f := newFixture(t, 3)
	if _, err := f.svc.StartSession(context.Background(), student, f.bankID, ""); !errors.Is(err, ErrBankExhausted) || !errors.Is(err, ErrNotFound) {
		t.Errorf("empty bank err = %v, want ErrBankExhausted", err)
	}
	if _, err := f.svc.StartSession(context.Background(), student, uuid.New(), ""); !errors.Is(err, ErrBankNotFound) {
		t.Errorf("unknown bank err = %v, want ErrBankNotFound", err)
	}
}

func TestDefaultQuotaApplies(t *testing.T) {
	f := newFixture(t, 0, multipleChoice(model.TierMedium, "", 1))
	started := f.start(t, "")
	if started.TotalQuestionsQuota != 10 {
		t.Errorf("quota = %d, want default 10", started.TotalQuestionsQuota)
	}
}

func TestGetReport(t *testing.T) {
	f := newFixture(t, 2, multipleChoice(model.TierMedium, "algebra", 1), fillBlank(model.TierHard, "geo", 2))
	started := f.start(t, "")
	f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 0)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = f.events.Append(context.Background(), model.ProctoringEvent{
			SessionID:  started.SessionID,
			Type:       model.EventTabSwitch,
			Confidence: 1,
			Timestamp:  now.Add(time.Duration(i) * time.Second),
		})
	}

	report, err := f.svc.GetReport(context.Background(), started.SessionID, Viewer{StudentID: student})
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress", report.Status)
	}
	if report.Score.Points != 2 || report.Score.Percentage != 100 || report.Score.Correct != 1 {
		t.Errorf("score = %+v", report.Score)
	}
	if got := report.Tiers[model.TierMedium]; got.Answered != 1 || got.Correct != 1 {
		t.Errorf("medium breakdown = %+v", got)
	}
	if len(report.Questions) != 1 || report.Questions[0].Topic != "algebra" {
		t.Errorf("questions = %+v", report.Questions)
	}
	if !report.ProctoringAvailable || report.Proctoring.IntegrityScore != 75 || report.Proctoring.RiskLevel != model.RiskMedium {
		t.Errorf("proctoring = %+v", report.Proctoring)
	}

	if _, err := f.svc.GetReport(context.Background(), started.SessionID, Viewer{StudentID: "someone-else"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("foreign student err = %v, want ErrSessionNotFound", err)
	}
	if _, err := f.svc.GetReport(context.Background(), started.SessionID, Viewer{Proctor: true}); err != nil {
		t.Errorf("proctor read failed: %v", err)
	}
}

func TestGetReportDegradesWithoutEventLog(t *testing.T) {
	f := newFixture(t, 2, multipleChoice(model.TierMedium, "", 1))
	svc := NewExamSessionService(f.bank, f.sessions, failingEventLog{}, f.guard, f.monitor, SessionOptions{}, zerolog.Nop())
	started, err := svc.StartSession(context.Background(), student, f.bankID, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	report, err := svc.GetReport(context.Background(), started.SessionID, Viewer{StudentID: student})
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.ProctoringAvailable || report.Proctoring != nil {
		t.Errorf("proctoring section should be unavailable: %+v", report.Proctoring)
	}
}
