package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheClosed is returned by every operation after Close.
var ErrCacheClosed = errors.New("cache is closed")

// ICache stores opaque values for a limited time. Implementations must be
// safe for concurrent use.
type ICache interface {
	// Get returns the value stored under key. A missing or expired key is
	// reported with found=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. A zero ttl keeps the value until it is
	// deleted or the cache is closed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
