package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// requireRedis skips the test unless REDIS_TEST_ADDRESS points at a Redis server.
func requireRedis(t *testing.T) *RedisCache {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	rc, err := NewRedisCache(&RedisConfig{
		Address:   addr,
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: fmt.Sprintf("ledger:test:%d:", time.Now().UnixNano()),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestNewRedisCache_Validation(t *testing.T) {
	_, err := NewRedisCache(nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "redis config cannot be nil")

	_, err = NewRedisCache(&RedisConfig{}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "redis address cannot be empty")

	_, err = NewRedisCache(&RedisConfig{Address: "localhost:6379"}, nil)
	assert.ErrorContains(t, err, "logger is required")
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	rc := requireRedis(t)
	ctx := context.Background()

	_, found, err := rc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.Set(ctx, "balance", []byte("42"), time.Minute))
	value, found, err := rc.Get(ctx, "balance")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("42"), value)

	require.NoError(t, rc.Delete(ctx, "balance"))
	_, found, err = rc.Get(ctx, "balance")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.HealthCheck(context.Background()))
}

func TestRedisCache_Expiry(t *testing.T) {
	rc := requireRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "short", []byte("v"), 50*time.Millisecond))
	require.Eventually(t, func() bool {
		_, found, err := rc.Get(ctx, "short")
		return err == nil && !found
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisCache_Closed(t *testing.T) {
	rc := requireRedis(t)
	require.NoError(t, rc.Close())

	_, _, err := rc.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrCacheClosed)
	assert.NoError(t, rc.Close())
}
