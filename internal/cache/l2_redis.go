package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const l2KeyPrefix = "geobank:"

// L2 is the distributed cache tier, namespaced under geobank: in the
// shared Redis keyspace.
type L2 struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewL2 wraps an already-connected redis.Client with a default TTL.
func NewL2(client *redis.Client, ttl time.Duration, logger *zap.Logger) *L2 {
	return &L2{client: client, ttl: ttl, logger: logger}
}

func (l *L2) namespaced(key string) string {
	return l2KeyPrefix + key
}

// Get returns (value, true, nil) on hit, (nil, false, nil) on a clean miss,
// and (nil, false, err) if Redis itself failed — callers treat the error
// case as CACHE_DEGRADED, never as a hard failure.
func (l *L2) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := l.client.Get(ctx, l.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores value under key with this tier's default TTL.
func (l *L2) Set(ctx context.Context, key string, value []byte) error {
	return l.SetTTL(ctx, key, value, l.ttl)
}

// SetTTL stores value under key with an explicit TTL.
func (l *L2) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return l.client.Set(ctx, l.namespaced(key), value, ttl).Err()
}

// Evict removes key.
func (l *L2) Evict(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.namespaced(key)).Err()
}

// EvictByPattern performs a server-side SCAN under the geobank: namespace
// and deletes every matching key in batches, returning the count removed.
func (l *L2) EvictByPattern(ctx context.Context, pattern string) (int, error) {
	match := l.namespaced(pattern)
	var cursor uint64
	var deleted int

	for {
		keys, next, err := l.client.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := l.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Health pings the underlying client.
func (l *L2) Health(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
