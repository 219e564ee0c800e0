package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new session at version 1.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	s.Version = 1
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
		   (id, student_id, bank_id, topic, question_quota, served_question_ids,
		    current_question_id, current_tier, score, max_score, status, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		s.ID, s.StudentID, s.BankID, s.Topic, s.QuestionQuota, nonNil(s.ServedQuestionIDs),
		s.CurrentQuestionID, s.CurrentTier, s.Score, s.MaxScore, s.Status, s.Version,
	).Scan(&s.CreatedAt)
}

// Get retrieves a session with its answer history ordered by sequence. Both
// reads share one repeatable-read snapshot, so the answers always match the
// session's score and version even while a submission commits.
func (r *ExamSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback(ctx)

	s := &model.ExamSession{}
	err = tx.QueryRow(ctx,
		`SELECT id, student_id, bank_id, topic, question_quota, served_question_ids,
		        current_question_id, current_tier, score, max_score, status,
		        completion_reason, version, created_at, completed_at
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(
		&s.ID, &s.StudentID, &s.BankID, &s.Topic, &s.QuestionQuota, &s.ServedQuestionIDs,
		&s.CurrentQuestionID, &s.CurrentTier, &s.Score, &s.MaxScore, &s.Status,
		&s.CompletionReason, &s.Version, &s.CreatedAt, &s.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.Answers, err = listAnswers(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit read tx: %w", err)
	}
	return s, nil
}

func listAnswers(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := tx.Query(ctx,
		`SELECT question_id, sequence, tier, topic, answer, correct, verdict, fraction,
		        points, max_points, time_spent_seconds, submitted_at
		 FROM answer_records
		 WHERE session_id = $1
		 ORDER BY sequence`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	answers := []model.AnswerRecord{}
	for rows.Next() {
		a := model.AnswerRecord{SessionID: sessionID}
		if err := rows.Scan(
			&a.QuestionID, &a.Sequence, &a.Tier, &a.Topic, &a.Answer, &a.Correct, &a.Verdict,
			&a.Fraction, &a.Points, &a.MaxPoints, &a.TimeSpentSeconds, &a.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ApplySubmission writes the post-submission state of s and appends rec in one
// transaction. The update only lands if the stored version still equals
// expectedVersion; otherwise ErrVersionConflict is returned and nothing changes.
func (r *ExamSessionRepository) ApplySubmission(ctx context.Context, s *model.ExamSession, rec model.AnswerRecord, expectedVersion int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET served_question_ids = $1, current_question_id = $2, current_tier = $3,
		     score = $4, max_score = $5, status = $6, completion_reason = $7,
		     completed_at = $8, version = version + 1
		 WHERE id = $9 AND version = $10`,
		nonNil(s.ServedQuestionIDs), s.CurrentQuestionID, s.CurrentTier,
		s.Score, s.MaxScore, s.Status, s.CompletionReason,
		s.CompletedAt, s.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO answer_records
		   (session_id, question_id, sequence, tier, topic, answer, correct, verdict,
		    fraction, points, max_points, time_spent_seconds, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, rec.QuestionID, rec.Sequence, rec.Tier, rec.Topic, rec.Answer, rec.Correct, rec.Verdict,
		rec.Fraction, rec.Points, rec.MaxPoints, rec.TimeSpentSeconds, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.Version = expectedVersion + 1
	return nil
}
