package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "ledger:cache:"

// RedisCache is a cache.ICache backed by Redis, suitable for sharing
// indexer responses between several client processes.
type RedisCache struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key. Defaults to "ledger:cache:".
	KeyPrefix string
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(cfg *RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	logger.Sugar().Infow("Redis cache initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", keyPrefix)

	return &RedisCache{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
	}, nil
}

func (r *RedisCache) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, false, cache.ErrCacheClosed
	}

	value, err := r.client.Get(ctx, r.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return cache.ErrCacheClosed
	}

	if err := r.client.Set(ctx, r.prefixKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return cache.ErrCacheClosed
	}

	if err := r.client.Del(ctx, r.prefixKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return cache.ErrCacheClosed
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.logger.Sugar().Debugw("Closing Redis cache")
	return r.client.Close()
}

var _ cache.ICache = (*RedisCache)(nil)
