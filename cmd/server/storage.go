package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/importer"
	"github.com/stemsi/exstem-adaptive/internal/lock"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
	"github.com/stemsi/exstem-adaptive/internal/repository/memory"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/worker"
)

// storage bundles the backends the services run on.
type storage struct {
	bank     service.QuestionBank
	sessions service.SessionStore
	events   service.EventLog
	sink     service.EventSink
	guard    service.SubmissionGuard

	pool   *pgxpool.Pool
	rdb    *redis.Client
	worker *worker.ProctoringWorker
}

// probes lists the external services /health checks. Memory storage has none.
func (s *storage) probes() []database.Probe {
	var out []database.Probe
	if s.pool != nil {
		out = append(out, database.PostgresProbe(s.pool))
	}
	if s.rdb != nil {
		out = append(out, database.RedisProbe(s.rdb))
	}
	return out
}

// newMemoryStorage keeps everything in process. Sessions do not survive a
// restart and the live monitor is unavailable.
func newMemoryStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	bank := memory.NewQuestionBank()
	events := memory.NewEventLog()

	if cfg.SeedBankFile != "" {
		if err := seedBank(ctx, bank, cfg.SeedBankFile, log); err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("SEED_BANK_FILE is empty; memory storage starts without question banks")
	}

	return &storage{
		bank:     bank,
		sessions: memory.NewSessionStore(),
		events:   events,
		sink:     service.DirectSink{Log: events},
		guard:    lock.NewLocal(),
	}, nil
}

func newPostgresStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	events := repository.NewProctoringRepository(pool)
	return &storage{
		bank:     repository.NewQuestionBankRepository(pool),
		sessions: repository.NewExamSessionRepository(pool),
		events:   events,
		sink:     worker.NewProctoringQueue(rdb),
		guard:    lock.NewRedis(rdb, cfg.SubmissionLockTTL, log),
		pool:     pool,
		rdb:      rdb,
		worker:   worker.NewProctoringWorker(events, rdb, log),
	}, nil
}

// startWorkers runs the background workers. The returned channel closes once
// all of them have returned.
func (s *storage) startWorkers(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.worker == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		s.worker.Start(ctx)
	}()
	return done
}

func (s *storage) Close() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func seedBank(ctx context.Context, bank *memory.QuestionBank, path string, log zerolog.Logger) error {
	format, err := importer.DetectFormat(path)
	if err != nil {
		return err
	}
	imp, err := importer.LoadFile(path, format, model.BankImport{Name: path})
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	b, questions, err := importer.Build(imp)
	if err != nil {
		return fmt.Errorf("build bank from %s: %w", path, err)
	}
	if err := bank.CreateBank(ctx, b, questions); err != nil {
		return fmt.Errorf("store bank: %w", err)
	}
	log.Info().
		Str("bank_id", b.ID.String()).
		Str("name", b.Name).
		Int("questions", len(questions)).
		Msg("Seeded question bank")
	return nil
}
