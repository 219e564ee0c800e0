package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventStore is where drained events end up.
type EventStore interface {
	Append(ctx context.Context, events ...model.ProctoringEvent) error
}

// ProctoringQueue pushes accepted events onto the Redis persistence queue.
type ProctoringQueue struct {
	rdb *redis.Client
}

// NewProctoringQueue creates a new ProctoringQueue.
func NewProctoringQueue(rdb *redis.Client) *ProctoringQueue {
	return &ProctoringQueue{rdb: rdb}
}

// Enqueue appends ev to the persistence queue.
func (q *ProctoringQueue) Enqueue(ctx context.Context, ev model.ProctoringEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistProctoringQueue, data).Err()
}

// ProctoringWorker drains the proctoring queue into the event log in batches.
type ProctoringWorker struct {
	store EventStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewProctoringWorker creates a new ProctoringWorker.
func NewProctoringWorker(store EventStore, rdb *redis.Client, log zerolog.Logger) *ProctoringWorker {
	return &ProctoringWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "proctoring_worker").Logger(),
	}
}

// Start runs until ctx is cancelled, then flushes what it has buffered.
func (w *ProctoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctoringWorker started")

	buffer := make([]model.ProctoringEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis; BLPop returns immediately if data exists
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctoringQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var ev model.ProctoringEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			// Malformed JSON can never succeed; discard it.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

// flushSafe attempts a bulk insert, then row-by-row, then requeues.
func (w *ProctoringWorker) flushSafe(ctx context.Context, batch []model.ProctoringEvent) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctoringWorker) bulkInsert(ctx context.Context, batch []model.ProctoringEvent) error {
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			// Let the fallback drop the bad event individually.
			return err
		}
	}
	return w.store.Append(ctx, batch...)
}

func (w *ProctoringWorker) fallbackInsert(ctx context.Context, batch []model.ProctoringEvent) {
	requeueList := make([]model.ProctoringEvent, 0)

	for _, ev := range batch {
		if err := ev.Validate(); err != nil {
			w.log.Error().Err(err).Str("session_id", ev.SessionID.String()).Msg("Dropping invalid proctoring event")
			continue
		}
		if err := w.store.Append(ctx, ev); err != nil {
			w.log.Error().Err(err).Str("session_id", ev.SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctoringWorker) requeue(ctx context.Context, items []model.ProctoringEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistProctoringQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
	// Back off so a database outage does not turn into a hot loop.
	time.Sleep(2 * time.Second)
}

func (w *ProctoringWorker) shutdown(buffer []model.ProctoringEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
