package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/retailcore/backend/internal/domain/shared"
)

// Channel carrying return lifecycle events
const eventChannel = "returns.events"

const publishTimeout = 2 * time.Second

// LoggingPublisher writes domain events to the application log. It is the
// default notification sink when no broker is configured.
type LoggingPublisher struct {
	logger *zap.Logger
}

// NewLoggingPublisher creates a new LoggingPublisher
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{logger: logger}
}

// Publish logs the events
func (p *LoggingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		p.logger.Info("domain event",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_type", event.AggregateType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Time("occurred_at", event.OccurredAt()))
	}
	return nil
}

// envelope is the wire format of a published event
type envelope struct {
	EventID       string      `json:"event_id"`
	EventType     string      `json:"event_type"`
	AggregateType string      `json:"aggregate_type"`
	AggregateID   string      `json:"aggregate_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Payload       interface{} `json:"payload"`
}

// RedisPublisher publishes domain events on a Redis pub/sub channel.
// Publishing is best effort: failures are logged and reported but callers
// treat the sink as fire-and-forget.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher creates a new RedisPublisher
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, logger: logger}
}

// Publish publishes the events to the returns channel
func (p *RedisPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var firstErr error
	for _, event := range events {
		body, err := json.Marshal(envelope{
			EventID:       event.EventID().String(),
			EventType:     event.EventType(),
			AggregateType: event.AggregateType(),
			AggregateID:   event.AggregateID().String(),
			OccurredAt:    event.OccurredAt(),
			Payload:       event,
		})
		if err != nil {
			p.logger.Warn("failed to encode domain event",
				zap.String("event_type", event.EventType()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := p.client.Publish(ctx, eventChannel, body).Err(); err != nil {
			p.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var (
	_ shared.EventPublisher = (*LoggingPublisher)(nil)
	_ shared.EventPublisher = (*RedisPublisher)(nil)
)
