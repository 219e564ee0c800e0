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

// QuestionBankRepository handles question bank data access.
type QuestionBankRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionBankRepository creates a new QuestionBankRepository.
func NewQuestionBankRepository(pool *pgxpool.Pool) *QuestionBankRepository {
	return &QuestionBankRepository{pool: pool}
}

const questionColumns = `id, bank_id, kind, tier, topic, text, explanation, position, answer_key`

// GetBank retrieves a bank by ID.
func (r *QuestionBankRepository) GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, question_quota, created_at
		 FROM question_banks WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.QuestionQuota, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bank: %w", err)
	}
	return b, nil
}

// GetQuestion returns the first unseen question of the requested tier in bank
// position order. An empty topic matches any topic.
func (r *QuestionBankRepository) GetQuestion(ctx context.Context, bankID uuid.UUID, q model.QuestionQuery) (*model.Question, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE bank_id = $1 AND tier = $2
		   AND ($3::text = '' OR lower(topic) = lower($3::text))
		   AND NOT (id = ANY($4::uuid[]))
		 ORDER BY position, id
		 LIMIT 1`,
		bankID, q.Tier, q.Topic, nonNil(q.Exclude),
	)
	question, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return question, nil
}

// GetQuestionByID retrieves a single question.
func (r *QuestionBankRepository) GetQuestionByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	question, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question by id: %w", err)
	}
	return question, nil
}

// CountRemaining counts the unseen questions of a tier, any topic.
func (r *QuestionBankRepository) CountRemaining(ctx context.Context, bankID uuid.UUID, tier model.Tier, exclude []uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions
		 WHERE bank_id = $1 AND tier = $2 AND NOT (id = ANY($3::uuid[]))`,
		bankID, tier, nonNil(exclude),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count remaining: %w", err)
	}
	return n, nil
}

// CreateBank inserts a bank and all of its questions in one transaction.
// Every question is validated before anything is written.
func (r *QuestionBankRepository) CreateBank(ctx context.Context, bank *model.QuestionBank, questions []model.Question) error {
	rows := make([][]any, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", q.Position, err)
		}
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		key, err := q.KeyJSON()
		if err != nil {
			return fmt.Errorf("question %d: %w", q.Position, err)
		}
		rows = append(rows, []any{q.ID, bank.ID, q.Kind, q.Tier, q.Topic, q.Text, q.Explanation, q.Position, key})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if bank.ID == uuid.Nil {
		bank.ID = uuid.New()
		for _, row := range rows {
			row[1] = bank.ID
		}
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO question_banks (id, name, description, question_quota)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		bank.ID, bank.Name, bank.Description, bank.QuestionQuota,
	).Scan(&bank.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bank: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "bank_id", "kind", "tier", "topic", "text", "explanation", "position", "answer_key"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}
	for i := range questions {
		questions[i].BankID = bank.ID
	}
	return tx.Commit(ctx)
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var (
		q   model.Question
		key []byte
	)
	if err := row.Scan(&q.ID, &q.BankID, &q.Kind, &q.Tier, &q.Topic, &q.Text, &q.Explanation, &q.Position, &key); err != nil {
		return nil, err
	}
	if err := q.SetKeyJSON(key); err != nil {
		return nil, fmt.Errorf("decode answer key of %s: %w", q.ID, err)
	}
	return &q, nil
}

// nonNil keeps "= ANY($n)" from comparing against a NULL array.
func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
