package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
)

// Monitor event types.
const (
	MonitorSessionStarted   = "session_started"
	MonitorAnswerSubmitted  = "answer_submitted"
	MonitorSessionCompleted = "session_completed"
	MonitorProctoringEvent  = "proctoring_event"
)

const publishTimeout = 2 * time.Second

// MonitorEvent is one message on a bank's live monitor channel.
type MonitorEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	StudentID string    `json:"student_id"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// MonitorPublisher fans session activity out to live monitors.
type MonitorPublisher interface {
	Publish(ctx context.Context, bankID uuid.UUID, ev MonitorEvent)
}

// MonitorService publishes and subscribes to bank monitor channels over Redis
// Pub/Sub. With a nil client it is a no-op publisher.
type MonitorService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb: rdb,
		log: log.With().Str("component", "monitor_service").Logger(),
	}
}

// Enabled reports whether live monitoring is backed by Redis.
func (s *MonitorService) Enabled() bool {
	return s.rdb != nil
}

// Publish sends ev on the bank channel. Failures are logged, never returned:
// monitoring must not affect the exam flow.
func (s *MonitorService) Publish(ctx context.Context, bankID uuid.UUID, ev MonitorEvent) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Str("type", ev.Type).Msg("Failed to encode monitor event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	channel := config.CacheKey.BankMonitorChannel(bankID.String())
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish monitor event")
	}
}

// Subscribe opens a subscription to the bank channel. The caller closes it.
func (s *MonitorService) Subscribe(ctx context.Context, bankID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.BankMonitorChannel(bankID.String()))
}
