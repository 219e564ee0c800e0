package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

func fillBlank(tier model.Tier, topic string, position int) model.Question {
	return model.Question{
		Kind:      model.QuestionKindFillBlank,
		Tier:      tier,
		Topic:     topic,
		Text:      "blank",
		Position:  position,
		FillBlank: &model.FillBlankKey{Accepted: []string{"x"}},
	}
}

func TestQuestionBankSelection(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionBank()
	bank := &model.QuestionBank{Name: "algebra"}
	questions := []model.Question{
		fillBlank(model.TierMedium, "sets", 3),
		fillBlank(model.TierMedium, "graphs", 1),
		fillBlank(model.TierEasy, "sets", 2),
	}
	if err := repo.CreateBank(ctx, bank, questions); err != nil {
		t.Fatalf("CreateBank: %v", err)
	}

	first, err := repo.GetQuestion(ctx, bank.ID, model.QuestionQuery{Tier: model.TierMedium})
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if first.Position != 1 {
		t.Errorf("first medium position = %d, want 1", first.Position)
	}

	byTopic, err := repo.GetQuestion(ctx, bank.ID, model.QuestionQuery{Tier: model.TierMedium, Topic: "SETS"})
	if err != nil {
		t.Fatalf("GetQuestion by topic: %v", err)
	}
	if byTopic.Topic != "sets" {
		t.Errorf("topic = %q, want sets", byTopic.Topic)
	}

	exclude := []uuid.UUID{first.ID, byTopic.ID}
	if _, err := repo.GetQuestion(ctx, bank.ID, model.QuestionQuery{Tier: model.TierMedium, Exclude: exclude}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("exhausted tier err = %v, want ErrNotFound", err)
	}
	n, _ := repo.CountRemaining(ctx, bank.ID, model.TierEasy, exclude)
	if n != 1 {
		t.Errorf("remaining easy = %d, want 1", n)
	}
}

func TestQuestionBankRejectsInvalidQuestion(t *testing.T) {
	repo := NewQuestionBank()
	bad := fillBlank(model.TierEasy, "", 1)
	bad.FillBlank = nil
	if err := repo.CreateBank(context.Background(), &model.QuestionBank{Name: "bad"}, []model.Question{bad}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSessionStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	s := &model.ExamSession{ID: uuid.New(), Status: model.SessionStatusInProgress, CurrentTier: model.TierMedium}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next, _ := store.Get(ctx, s.ID)
	next.Score = 2
	rec := model.AnswerRecord{SessionID: s.ID, Sequence: 1, Points: 2}
	if err := store.ApplySubmission(ctx, next, rec, 1); err != nil {
		t.Fatalf("ApplySubmission: %v", err)
	}
	if next.Version != 2 {
		t.Errorf("version = %d, want 2", next.Version)
	}

	stale, _ := store.Get(ctx, s.ID)
	stale.Score = 99
	if err := store.ApplySubmission(ctx, stale, rec, 1); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("stale apply err = %v, want ErrVersionConflict", err)
	}

	got, _ := store.Get(ctx, s.ID)
	if got.Score != 2 || len(got.Answers) != 1 {
		t.Errorf("stored state changed by rejected write: score=%v answers=%d", got.Score, len(got.Answers))
	}

	got.Answers[0].Points = 100
	again, _ := store.Get(ctx, s.ID)
	if again.Answers[0].Points != 2 {
		t.Error("Get leaked a mutable reference")
	}
}

func TestEventLogSnapshot(t *testing.T) {
	ctx := context.Background()
	log := NewEventLog()
	sid := uuid.New()
	_ = log.Append(ctx, model.ProctoringEvent{SessionID: sid, Type: model.EventTabSwitch})

	snap, _ := log.ListBySession(ctx, sid)
	_ = log.Append(ctx, model.ProctoringEvent{SessionID: sid, Type: model.EventRightClick})
	if len(snap) != 1 {
		t.Errorf("snapshot grew to %d", len(snap))
	}
	empty, _ := log.ListBySession(ctx, uuid.New())
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown session log = %v, want empty slice", empty)
	}
}
