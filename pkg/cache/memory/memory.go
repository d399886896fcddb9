package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process implementation of cache.ICache.
// Values are copied on the way in and out.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	closed  bool
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, false, cache.ErrCacheClosed
	}
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return cache.ErrCacheClosed
	}
	m.entries[key] = entry{value: stored, expiresAt: expiresAt}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return cache.ErrCacheClosed
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) HealthCheck(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return cache.ErrCacheClosed
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}

var _ cache.ICache = (*MemoryCache)(nil)
