// Package cache invalidates tenant-namespaced inventory cache entries in Redis.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// scanBatch is the COUNT hint for SCAN when invalidating by pattern
const scanBatch = 100

// Invalidator removes stale cache entries after a ledger commit
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePattern(ctx context.Context, pattern string) error
}

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisInvalidator implements Invalidator using DEL and SCAN
type RedisInvalidator struct {
	store  cmdable
	raw    *redis.Client
	logger *zap.Logger
}

// NewRedisInvalidator wraps an existing client
func NewRedisInvalidator(client *redis.Client, logger *zap.Logger) *RedisInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisInvalidator{store: client, raw: client, logger: logger}
}

// Invalidate deletes keys. Missing keys are not an error.
func (r *RedisInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	removed, err := r.store.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	r.logger.Debug("Cache keys invalidated",
		zap.Strings("keys", keys),
		zap.Int64("removed", removed),
	)
	return nil
}

// InvalidatePattern deletes every key matching pattern, walking the keyspace with SCAN
func (r *RedisInvalidator) InvalidatePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.store.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys %s: %w", pattern, err)
		}
		if err := r.Invalidate(ctx, keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks the Redis connection
func (r *RedisInvalidator) Ping(ctx context.Context) error {
	return r.store.Ping(ctx).Err()
}

// Close closes the underlying client
func (r *RedisInvalidator) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}

// NopInvalidator is used when Redis is disabled or unreachable
type NopInvalidator struct{}

// Invalidate does nothing
func (NopInvalidator) Invalidate(context.Context, ...string) error { return nil }

// InvalidatePattern does nothing
func (NopInvalidator) InvalidatePattern(context.Context, string) error { return nil }

var (
	_ Invalidator = (*RedisInvalidator)(nil)
	_ Invalidator = NopInvalidator{}
)
