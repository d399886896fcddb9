package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const gcInterval = 5 * time.Minute

// BadgerConfig holds the configuration for a badger-backed cache
type BadgerConfig struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir      string
	InMemory bool
}

// BadgerCache is a cache.ICache persisted with Badger, so cached indexer
// responses survive restarts of the client.
type BadgerCache struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerCache opens the database and starts background value-log GC.
func NewBadgerCache(cfg *BadgerConfig, logger *zap.Logger) (*BadgerCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("badger config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var opts badgerdb.Options
	location := "in-memory"
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("badger directory cannot be empty")
		}
		absPath, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		location = absPath
		opts = badgerdb.DefaultOptions(absPath)
		opts.CompactL0OnClose = true
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", location, err)
	}

	bc := &BadgerCache{
		db:     db,
		logger: logger,
	}

	if !cfg.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		bc.gcCancel = cancel
		bc.gcWg.Add(1)
		go bc.runGC(ctx)
	}

	logger.Sugar().Infow("Badger cache initialized", "path", location)
	return bc, nil
}

// runGC runs periodic garbage collection in the background
func (b *BadgerCache) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, cache.ErrCacheClosed
	}

	var value []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return cache.ErrCacheClosed
	}

	entry := badgerdb.NewEntry([]byte(key), value)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *BadgerCache) Delete(_ context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return cache.ErrCacheClosed
	}

	if err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (b *BadgerCache) HealthCheck(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return cache.ErrCacheClosed
	}
	if b.db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return nil
}

func (b *BadgerCache) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.gcCancel != nil {
		b.gcCancel()
		b.gcWg.Wait()
	}

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	b.logger.Sugar().Infow("Badger cache closed")
	return nil
}

var _ cache.ICache = (*BadgerCache)(nil)
