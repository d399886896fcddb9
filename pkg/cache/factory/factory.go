package factory

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/badger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/memory"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/redis"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/config"
	"go.uber.org/zap"
)

// NewCache builds the cache selected by cfg and health-checks it. CacheTypeNone
// yields a nil cache and no error; callers treat a nil cache as disabled.
func NewCache(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (cache.ICache, error) {
	c, err := newCache(cfg, logger)
	if err != nil || c == nil {
		return nil, err
	}
	if err := checkHealth(ctx, c); err != nil {
		return nil, err
	}
	logger.Sugar().Debugw("Cache ready", "type", cfg.Type.String())
	return c, nil
}

// checkHealth closes c when the backend is not usable.
func checkHealth(ctx context.Context, c cache.ICache) error {
	if err := c.HealthCheck(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

func newCache(cfg *config.CacheConfig, logger *zap.Logger) (cache.ICache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	switch cfg.Type {
	case config.CacheTypeNone:
		return nil, nil
	case config.CacheTypeMemory:
		return memory.NewMemoryCache(), nil
	case config.CacheTypeRedis:
		rc, err := redis.NewRedisCache(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case config.CacheTypeBadger:
		bc, err := badger.NewBadgerCache(&badger.BadgerConfig{
			Dir:      cfg.BadgerDir,
			InMemory: cfg.BadgerInMemory,
		}, logger)
		if err != nil {
			return nil, err
		}
		return bc, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
