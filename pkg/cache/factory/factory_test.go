package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/badger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/memory"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	c, err := NewCache(ctx, &config.CacheConfig{Type: config.CacheTypeNone}, logger)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCache(ctx, &config.CacheConfig{Type: config.CacheTypeMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryCache{}, c)
	require.NoError(t, c.Close())

	c, err = NewCache(ctx, &config.CacheConfig{Type: config.CacheTypeBadger, BadgerDir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &badger.BadgerCache{}, c)
	require.NoError(t, c.Close())

	_, err = NewCache(ctx, &config.CacheConfig{Type: config.CacheTypeRedis}, logger)
	assert.ErrorContains(t, err, "invalid cache config")

	_, err = NewCache(ctx, nil, logger)
	assert.Error(t, err)
}

type unhealthyCache struct {
	closed bool
}

func (u *unhealthyCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (u *unhealthyCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (u *unhealthyCache) Delete(context.Context, string) error { return nil }
func (u *unhealthyCache) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}
func (u *unhealthyCache) Close() error {
	u.closed = true
	return nil
}

func TestCheckHealth(t *testing.T) {
	c := &unhealthyCache{}
	err := checkHealth(context.Background(), c)
	assert.ErrorContains(t, err, "cache health check failed: connection refused")
	assert.True(t, c.closed)

	healthy := memory.NewMemoryCache()
	defer func() { _ = healthy.Close() }()
	assert.NoError(t, checkHealth(context.Background(), healthy))
}
