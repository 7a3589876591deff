package cache

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a RedisStore when Redis is enabled and
// reachable. Otherwise it returns a MemoryStore, unless requireRedis is set
// and Redis is enabled but down.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, requireRedis bool, log *zap.Logger) (shared.IdempotencyStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-memory dedupe store")
		return NewMemoryStore(), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		log.Info("Using Redis dedupe store", zap.String("addr", cfg.Addr()))
		return NewRedisStore(client, DefaultKeyPrefix), nil
	}
	if requireRedis {
		return nil, fmt.Errorf("redis is required but unavailable: %w", err)
	}

	log.Warn("Redis unavailable, falling back to in-memory dedupe store; "+
		"notifications may repeat across instances",
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}
