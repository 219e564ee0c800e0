package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired-then-reacquired lock is never released by the previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a guard shared by every server instance. Keys expire after ttl so
// a crashed holder cannot block a session forever.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRedis creates a new Redis guard.
func NewRedis(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "submission_lock").Logger(),
	}
}

// TryAcquire takes the guard for id or returns ErrHeld.
func (r *Redis) TryAcquire(ctx context.Context, id uuid.UUID) (Release, error) {
	key := config.CacheKey.SessionSubmitLockKey(id.String())
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() {
		// The request context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.rdb, []string{key}, token).Err(); err != nil {
			r.log.Warn().Err(err).Str("session_id", id.String()).Msg("Failed to release submission lock")
		}
	}, nil
}
