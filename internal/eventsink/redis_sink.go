package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamName         = "geobank-events"
	publishMaxAttempts = 3
	publishTimeout     = 200 * time.Millisecond
)

// RedisEventSink XADDs events onto a Redis Stream via a dedicated client.
// Publication is fire-and-forget with a small bounded retry; a caller that
// wants best-effort semantics without blocking the hot path should call
// PublishAsync instead of Publish.
type RedisEventSink struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisEventSink wraps an already-connected Redis Streams client.
func NewRedisEventSink(client *redis.Client, logger *zap.Logger) *RedisEventSink {
	return &RedisEventSink{client: client, logger: logger}
}

// Publish implements EventSink. It bounds total time to publishTimeout and
// retries transient failures up to publishMaxAttempts before giving up.
func (s *RedisEventSink) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= publishMaxAttempts; attempt++ {
		lastErr = s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: streamName,
			Values: map[string]interface{}{
				"eventType": eventType,
				"payload":   string(body),
			},
		}).Err()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", eventType, publishMaxAttempts, lastErr)
}

// PublishAsync calls Publish in its own goroutine with a detached context
// and logs (rather than returns) any error, matching the "event publish
// 200ms fire-and-forget retry" contract on the query/registration hot path.
func (s *RedisEventSink) PublishAsync(eventType string, payload interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.Publish(ctx, eventType, payload); err != nil {
			s.logger.Warn("event publish failed", zap.String("eventType", eventType), zap.Error(err))
		}
	}()
}

// NewRedisStreamsClient connects a dedicated Redis client for stream
// operations, kept separate from the L2 cache client so stream backpressure
// never blocks cache reads.
func NewRedisStreamsClient(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis streams: %w", err)
	}

	logger.Info("Redis Streams connected", zap.String("addr", addr))
	return client, nil
}
