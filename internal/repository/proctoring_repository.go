package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// ProctoringRepository is the append-only proctoring event log in PostgreSQL.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// Append bulk-inserts events. A single event goes through a plain INSERT.
func (r *ProctoringRepository) Append(ctx context.Context, events ...model.ProctoringEvent) error {
	switch len(events) {
	case 0:
		return nil
	case 1:
		ev := events[0]
		_, err := r.pool.Exec(ctx,
			`INSERT INTO proctoring_events (session_id, event_type, confidence, occurred_at, details, received_at)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
			ev.SessionID, ev.Type, ev.Confidence, ev.Timestamp, detailsOrNull(ev), ev.ReceivedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []any{ev.SessionID, ev.Type, ev.Confidence, ev.Timestamp, detailsOrNull(ev), ev.ReceivedAt})
	}
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"proctoring_events"},
		[]string{"session_id", "event_type", "confidence", "occurred_at", "details", "received_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy events: %w", err)
	}
	return nil
}

// ListBySession returns every stored event of a session in arrival order.
func (r *ProctoringRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ProctoringEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_type, confidence, occurred_at, details, received_at
		 FROM proctoring_events
		 WHERE session_id = $1
		 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.ProctoringEvent{}
	for rows.Next() {
		ev := model.ProctoringEvent{SessionID: sessionID}
		var details []byte
		if err := rows.Scan(&ev.Type, &ev.Confidence, &ev.Timestamp, &details, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Details = details
		events = append(events, ev)
	}
	return events, rows.Err()
}

func detailsOrNull(ev model.ProctoringEvent) []byte {
	if len(ev.Details) == 0 {
		return nil
	}
	return ev.Details
}
