package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
)

// NewRedisClient connects the client shared by the submission lock, the
// proctoring queue and the monitor channels.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	// Lock acquisition runs inside the submit request; never let a slow
	// Redis stall it for longer than the lock itself lives.
	if cfg.SubmissionLockTTL > 0 && (opt.ReadTimeout <= 0 || opt.ReadTimeout > cfg.SubmissionLockTTL) {
		opt.ReadTimeout = cfg.SubmissionLockTTL
	}
	opt.ClientName = "exstem-adaptive"

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Dur("read_timeout", opt.ReadTimeout).
		Msg("Redis client ready")

	return rdb, nil
}

// RedisProbe reports Redis reachability under the name "redis".
func RedisProbe(rdb *redis.Client) Probe {
	return Probe{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}
