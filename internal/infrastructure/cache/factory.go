package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// NewInvalidator connects to Redis and returns a RedisInvalidator. When Redis is
// disabled, or unreachable and fallback is allowed, it returns a NopInvalidator.
func NewInvalidator(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (Invalidator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("Redis disabled, cache invalidation is a no-op")
		return NopInvalidator{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !allowFallback {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("Redis unavailable, cache invalidation disabled", zap.Error(err))
		return NopInvalidator{}, nil
	}

	logger.Info("Using Redis cache invalidation", zap.String("addr", cfg.Addr()))
	return NewRedisInvalidator(client, logger.Named("cache")), nil
}
