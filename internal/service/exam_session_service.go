package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/engine"
	"github.com/stemsi/exstem-adaptive/internal/lock"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
	"golang.org/x/sync/errgroup"
)

const fastCorrectPraise = "Excellent! Quick and accurate."

// SessionOptions tunes an ExamSessionService.
type SessionOptions struct {
	TimeLimits   engine.TimeLimits
	DefaultQuota int
}

// ExamSessionService runs adaptive exam sessions end to end.
type ExamSessionService struct {
	bank     QuestionBank
	sessions SessionStore
	events   EventLog
	guard    SubmissionGuard
	monitor  MonitorPublisher
	limits   engine.TimeLimits
	quota    int
	now      func() time.Time
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	bank QuestionBank,
	sessions SessionStore,
	events EventLog,
	guard SubmissionGuard,
	monitor MonitorPublisher,
	opts SessionOptions,
	log zerolog.Logger,
) *ExamSessionService {
	if opts.TimeLimits == nil {
		opts.TimeLimits = engine.DefaultTimeLimits
	}
	if opts.DefaultQuota <= 0 {
		opts.DefaultQuota = 10
	}
	return &ExamSessionService{
		bank:     bank,
		sessions: sessions,
		events:   events,
		guard:    guard,
		monitor:  monitor,
		limits:   opts.TimeLimits,
		quota:    opts.DefaultQuota,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("component", "exam_session_service").Logger(),
	}
}

// Viewer identifies who reads a session. Students see only their own sessions;
// proctors see every session.
type Viewer struct {
	StudentID string
	Proctor   bool
}

func (v Viewer) canRead(s *model.ExamSession) bool {
	return v.Proctor || (v.StudentID != "" && v.StudentID == s.StudentID)
}

// StartSessionResult is returned when a session opens.
type StartSessionResult struct {
	SessionID           uuid.UUID             `json:"session_id"`
	FirstQuestion       *model.PublicQuestion `json:"first_question"`
	TotalQuestionsQuota int                   `json:"total_questions_quota"`
	TimeLimitSeconds    float64               `json:"time_limit_seconds"`
}

// SubmitAnswerInput is one answer to the outstanding question.
type SubmitAnswerInput struct {
	SessionID        uuid.UUID
	StudentID        string
	QuestionID       uuid.UUID
	Answer           string
	SelectedOption   *int
	TimeSpentSeconds float64
}

// ScoreSummary aggregates a session's graded answers.
type ScoreSummary struct {
	Correct    int     `json:"correct"`
	Partial    int     `json:"partial"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Points     float64 `json:"points"`
	MaxPoints  float64 `json:"max_points"`
}

// SubmitAnswerResult is the graded outcome plus what comes next.
type SubmitAnswerResult struct {
	Correct          bool                    `json:"correct"`
	Verdict          model.Verdict           `json:"verdict"`
	Fraction         float64                 `json:"fraction"`
	Feedback         string                  `json:"feedback"`
	ReferenceAnswer  string                  `json:"reference_answer"`
	MatchedTerms     []string                `json:"matched_terms,omitempty"`
	MissingTerms     []string                `json:"missing_terms,omitempty"`
	PointsAwarded    float64                 `json:"points_awarded"`
	MaxPoints        float64                 `json:"max_points"`
	NextTier         model.Tier              `json:"next_difficulty"`
	NextQuestion     *model.PublicQuestion   `json:"next_question"`
	TimeLimitSeconds float64                 `json:"time_limit_seconds,omitempty"`
	ExamComplete     bool                    `json:"exam_complete"`
	CompletionReason *model.CompletionReason `json:"completion_reason,omitempty"`
	FinalScore       *ScoreSummary           `json:"final_score,omitempty"`
}

// SessionView is the current state of a session as shown to its owner.
type SessionView struct {
	SessionID        uuid.UUID               `json:"session_id"`
	BankID           uuid.UUID               `json:"bank_id"`
	Status           model.SessionStatus     `json:"status"`
	CompletionReason *model.CompletionReason `json:"completion_reason,omitempty"`
	CurrentTier      model.Tier              `json:"current_difficulty"`
	CurrentQuestion  *model.PublicQuestion   `json:"current_question"`
	TimeLimitSeconds float64                 `json:"time_limit_seconds,omitempty"`
	Answered         int                     `json:"answered"`
	QuestionQuota    int                     `json:"question_quota"`
	Score            float64                 `json:"score"`
	MaxScore         float64                 `json:"max_score"`
	CreatedAt        time.Time               `json:"created_at"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
}

// QuestionBreakdown is one row of the per-question report.
type QuestionBreakdown struct {
	Sequence         int           `json:"sequence"`
	QuestionID       uuid.UUID     `json:"question_id"`
	Tier             model.Tier    `json:"difficulty"`
	Topic            string        `json:"topic"`
	Verdict          model.Verdict `json:"verdict"`
	Fraction         float64       `json:"fraction"`
	Points           float64       `json:"points"`
	MaxPoints        float64       `json:"max_points"`
	TimeSpentSeconds float64       `json:"time_spent_seconds"`
}

// TierBreakdown aggregates answers of one tier.
type TierBreakdown struct {
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Points   float64 `json:"points"`
}

// Report is the full result of a session, partial while in progress.
type Report struct {
	SessionID           uuid.UUID                    `json:"session_id"`
	StudentID           string                       `json:"student_id"`
	BankID              uuid.UUID                    `json:"bank_id"`
	Status              model.SessionStatus          `json:"status"`
	CompletionReason    *model.CompletionReason      `json:"completion_reason,omitempty"`
	Score               ScoreSummary                 `json:"score"`
	Questions           []QuestionBreakdown          `json:"questions"`
	Tiers               map[model.Tier]TierBreakdown `json:"difficulty_breakdown"`
	Proctoring          *model.ProctoringReport      `json:"proctoring"`
	ProctoringAvailable bool                         `json:"proctoring_available"`
}

// StartSession opens a new session on bankID for studentID and serves the
// first question. A non-empty topic is preferred when selecting questions.
func (s *ExamSessionService) StartSession(ctx context.Context, studentID string, bankID uuid.UUID, topic string) (*StartSessionResult, error) {
	bank, err := s.bank.GetBank(ctx, bankID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bank: %w", err)
	}

	quota := bank.QuestionQuota
	if quota <= 0 {
		quota = s.quota
	}

	first, err := s.nextQuestion(ctx, bankID, engine.FirstTier, topic, nil)
	if err != nil {
		return nil, fmt.Errorf("select first question: %w", err)
	}
	if first == nil {
		return nil, ErrBankExhausted
	}

	session := &model.ExamSession{
		ID:                uuid.New(),
		StudentID:         studentID,
		BankID:            bankID,
		Topic:             topic,
		QuestionQuota:     quota,
		ServedQuestionIDs: []uuid.UUID{first.ID},
		CurrentQuestionID: &first.ID,
		CurrentTier:       first.Tier,
		Status:            model.SessionStatusInProgress,
		CreatedAt:         s.now(),
		Answers:           []model.AnswerRecord{},
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", studentID).
		Str("bank_id", bankID.String()).
		Int("quota", quota).
		Msg("Exam session started")
	s.monitor.Publish(ctx, bankID, MonitorEvent{
		Type:      MonitorSessionStarted,
		SessionID: session.ID,
		StudentID: studentID,
		Data:      map[string]any{"question_quota": quota},
		At:        session.CreatedAt,
	})

	return &StartSessionResult{
		SessionID:           session.ID,
		FirstQuestion:       first.Public(),
		TotalQuestionsQuota: quota,
		TimeLimitSeconds:    s.limits.For(first.Tier).Seconds(),
	}, nil
}

// SubmitAnswer grades the answer to the outstanding question, records it and
// advances the session. Concurrent submissions for one session are rejected.
// Structural failures leave the stored session untouched.
func (s *ExamSessionService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*SubmitAnswerResult, error) {
	if in.TimeSpentSeconds < 0 || math.IsNaN(in.TimeSpentSeconds) || math.IsInf(in.TimeSpentSeconds, 0) {
		return nil, ErrInvalidTimeSpent
	}

	release, err := s.guard.TryAcquire(ctx, in.SessionID)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrSubmissionInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("acquire submission guard: %w", err)
	}
	defer release()

	session, err := s.loadOwned(ctx, in.SessionID, Viewer{StudentID: in.StudentID})
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, ErrSessionCompleted
	}
	if session.CurrentQuestionID == nil || *session.CurrentQuestionID != in.QuestionID {
		return nil, ErrStaleQuestion
	}

	question, err := s.bank.GetQuestionByID(ctx, in.QuestionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, in.QuestionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	answer, err := resolveAnswer(question, in)
	if err != nil {
		return nil, err
	}

	limit := s.limits.For(question.Tier)
	spent := engine.SpentFromSeconds(in.TimeSpentSeconds)
	eval := engine.Evaluate(question, answer)
	points := engine.Score(question.Tier, eval.Fraction, spent, limit)
	outcome := engine.Outcome{Correct: eval.Correct, Fraction: eval.Fraction, TimeSpent: spent}
	nextTier := engine.NextTier(question.Tier, outcome, limit)

	feedback := eval.Feedback
	if eval.Correct && outcome.IsFast(limit) {
		feedback = fastCorrectPraise + " " + feedback
	}

	now := s.now()
	record := model.AnswerRecord{
		SessionID:        session.ID,
		QuestionID:       question.ID,
		Sequence:         len(session.Answers) + 1,
		Tier:             question.Tier,
		Topic:            question.Topic,
		Answer:           answer,
		Correct:          eval.Correct,
		Verdict:          eval.Verdict,
		Fraction:         eval.Fraction,
		Points:           points.Awarded,
		MaxPoints:        points.Max,
		TimeSpentSeconds: spent.Seconds(),
		SubmittedAt:      now,
	}

	next := session.Clone()
	next.Score += points.Awarded
	next.MaxScore += points.Max
	next.Answers = append(next.Answers, record)

	var nextQuestion *model.Question
	if len(next.ServedQuestionIDs) < next.QuestionQuota {
		nextQuestion, err = s.nextQuestion(ctx, next.BankID, nextTier, next.Topic, next.ServedQuestionIDs)
		if err != nil {
			return nil, fmt.Errorf("select next question: %w", err)
		}
		if nextQuestion == nil {
			complete(next, model.CompletionBankExhausted, nextTier, now)
		} else {
			next.ServedQuestionIDs = append(next.ServedQuestionIDs, nextQuestion.ID)
			next.CurrentQuestionID = &nextQuestion.ID
			next.CurrentTier = nextQuestion.Tier
		}
	} else {
		complete(next, model.CompletionQuotaReached, nextTier, now)
	}

	if err := s.sessions.ApplySubmission(ctx, next, record, session.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrSessionChanged
		}
		return nil, fmt.Errorf("apply submission: %w", err)
	}

	logEvent := s.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", session.StudentID).
		Str("question_id", question.ID.String()).
		Str("verdict", string(eval.Verdict)).
		Float64("points", points.Awarded).
		Str("next_difficulty", string(nextTier))
	if next.IsCompleted() {
		logEvent.Str("completion_reason", string(*next.CompletionReason)).Msg("Exam session completed")
	} else {
		logEvent.Msg("Answer recorded")
	}

	result := &SubmitAnswerResult{
		Correct:         eval.Correct,
		Verdict:         eval.Verdict,
		Fraction:        eval.Fraction,
		Feedback:        feedback,
		ReferenceAnswer: eval.ReferenceAnswer,
		MatchedTerms:    eval.MatchedTerms,
		MissingTerms:    eval.MissingTerms,
		PointsAwarded:   points.Awarded,
		MaxPoints:       points.Max,
		NextTier:        nextTier,
		ExamComplete:    next.IsCompleted(),
	}
	if nextQuestion != nil {
		result.NextQuestion = nextQuestion.Public()
		result.TimeLimitSeconds = s.limits.For(nextQuestion.Tier).Seconds()
	}
	if next.IsCompleted() {
		summary := summarize(next)
		result.FinalScore = &summary
		result.CompletionReason = next.CompletionReason
	}

	s.publishSubmission(ctx, next, record, result)
	return result, nil
}

// GetSession returns the current state of a session.
func (s *ExamSessionService) GetSession(ctx context.Context, sessionID uuid.UUID, viewer Viewer) (*SessionView, error) {
	session, err := s.loadOwned(ctx, sessionID, viewer)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		SessionID:        session.ID,
		BankID:           session.BankID,
		Status:           session.Status,
		CompletionReason: session.CompletionReason,
		CurrentTier:      session.CurrentTier,
		Answered:         len(session.Answers),
		QuestionQuota:    session.QuestionQuota,
		Score:            session.Score,
		MaxScore:         session.MaxScore,
		CreatedAt:        session.CreatedAt,
		CompletedAt:      session.CompletedAt,
	}
	if session.CurrentQuestionID != nil {
		q, err := s.bank.GetQuestionByID(ctx, *session.CurrentQuestionID)
		if err != nil {
			return nil, fmt.Errorf("get current question: %w", err)
		}
		view.CurrentQuestion = q.Public()
		view.TimeLimitSeconds = s.limits.For(q.Tier).Seconds()
	}
	return view, nil
}

// GetReport assembles the score and proctoring sections of a session. The
// session and its event log are fetched concurrently; a failing event log
// degrades the proctoring section instead of failing the report.
func (s *ExamSessionService) GetReport(ctx context.Context, sessionID uuid.UUID, viewer Viewer) (*Report, error) {
	var (
		session   *model.ExamSession
		events    []model.ProctoringEvent
		eventsErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = s.loadOwned(gctx, sessionID, viewer)
		return err
	})
	g.Go(func() error {
		events, eventsErr = s.events.ListBySession(gctx, sessionID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		SessionID:        session.ID,
		StudentID:        session.StudentID,
		BankID:           session.BankID,
		Status:           session.Status,
		CompletionReason: session.CompletionReason,
		Score:            summarize(session),
		Questions:        make([]QuestionBreakdown, 0, len(session.Answers)),
		Tiers:            make(map[model.Tier]TierBreakdown, len(model.Tiers)),
	}
	for _, t := range model.Tiers {
		report.Tiers[t] = TierBreakdown{}
	}
	for _, a := range session.Answers {
		report.Questions = append(report.Questions, QuestionBreakdown{
			Sequence:         a.Sequence,
			QuestionID:       a.QuestionID,
			Tier:             a.Tier,
			Topic:            a.Topic,
			Verdict:          a.Verdict,
			Fraction:         a.Fraction,
			Points:           a.Points,
			MaxPoints:        a.MaxPoints,
			TimeSpentSeconds: a.TimeSpentSeconds,
		})
		tb := report.Tiers[a.Tier]
		tb.Answered++
		if a.Correct {
			tb.Correct++
		}
		tb.Points += a.Points
		report.Tiers[a.Tier] = tb
	}

	if eventsErr != nil {
		s.log.Warn().Err(eventsErr).Str("session_id", sessionID.String()).Msg("Proctoring log unavailable for report")
	} else {
		proctoring := engine.Aggregate(events)
		report.Proctoring = &proctoring
		report.ProctoringAvailable = true
	}
	return report, nil
}

// loadOwned fetches a session the viewer may access. Sessions owned by
// someone else are reported as not found.
func (s *ExamSessionService) loadOwned(ctx context.Context, id uuid.UUID, viewer Viewer) (*model.ExamSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !viewer.canRead(session) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// nextQuestion picks an unseen question, widening the search when the
// preferred tier and topic have nothing left: first any topic at the same
// tier, then the nearest tier with questions left. It returns nil when the
// bank is exhausted.
func (s *ExamSessionService) nextQuestion(ctx context.Context, bankID uuid.UUID, tier model.Tier, topic string, served []uuid.UUID) (*model.Question, error) {
	if topic != "" {
		q, err := s.findQuestion(ctx, bankID, model.QuestionQuery{Tier: tier, Topic: topic, Exclude: served})
		if q != nil || err != nil {
			return q, err
		}
	}
	q, err := s.findQuestion(ctx, bankID, model.QuestionQuery{Tier: tier, Exclude: served})
	if q != nil || err != nil {
		return q, err
	}

	for _, t := range engine.FallbackTiers(tier) {
		n, err := s.bank.CountRemaining(ctx, bankID, t, served)
		if err != nil {
			return nil, fmt.Errorf("count remaining %s: %w", t, err)
		}
		if n == 0 {
			continue
		}
		q, err := s.findQuestion(ctx, bankID, model.QuestionQuery{Tier: t, Exclude: served})
		if q != nil || err != nil {
			return q, err
		}
	}
	return nil, nil
}

func (s *ExamSessionService) findQuestion(ctx context.Context, bankID uuid.UUID, q model.QuestionQuery) (*model.Question, error) {
	question, err := s.bank.GetQuestion(ctx, bankID, q)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return question, nil
}

func (s *ExamSessionService) publishSubmission(ctx context.Context, session *model.ExamSession, rec model.AnswerRecord, result *SubmitAnswerResult) {
	s.monitor.Publish(ctx, session.BankID, MonitorEvent{
		Type:      MonitorAnswerSubmitted,
		SessionID: session.ID,
		StudentID: session.StudentID,
		Data: map[string]any{
			"sequence":        rec.Sequence,
			"verdict":         rec.Verdict,
			"points":          rec.Points,
			"score":           session.Score,
			"max_score":       session.MaxScore,
			"next_difficulty": result.NextTier,
		},
		At: rec.SubmittedAt,
	})
	if session.IsCompleted() {
		s.monitor.Publish(ctx, session.BankID, MonitorEvent{
			Type:      MonitorSessionCompleted,
			SessionID: session.ID,
			StudentID: session.StudentID,
			Data:      result.FinalScore,
			At:        rec.SubmittedAt,
		})
	}
}

// resolveAnswer turns a selected option index into its option text.
func resolveAnswer(q *model.Question, in SubmitAnswerInput) (string, error) {
	if in.SelectedOption == nil {
		return in.Answer, nil
	}
	if q.Kind != model.QuestionKindMultipleChoice || q.MultipleChoice == nil {
		return "", ErrAnswerTypeMismatch
	}
	idx := *in.SelectedOption
	if idx < 0 || idx >= len(q.MultipleChoice.Options) {
		return "", ErrOptionOutOfRange
	}
	return q.MultipleChoice.Options[idx], nil
}

func complete(s *model.ExamSession, reason model.CompletionReason, tier model.Tier, at time.Time) {
	s.Status = model.SessionStatusCompleted
	s.CompletionReason = &reason
	s.CompletedAt = &at
	s.CurrentQuestionID = nil
	s.CurrentTier = tier
}

func summarize(s *model.ExamSession) ScoreSummary {
	sum := ScoreSummary{
		Total:      len(s.Answers),
		Points:     s.Score,
		MaxPoints:  s.MaxScore,
		Percentage: math.Round(engine.Percentage(s.Score, s.MaxScore)*100) / 100,
	}
	for _, a := range s.Answers {
		switch a.Verdict {
		case model.VerdictCorrect:
			sum.Correct++
		case model.VerdictPartial:
			sum.Partial++
		}
	}
	return sum
}
