package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// BadgerConfig configures a BadgerCache. An empty Path keeps everything in
// memory.
type BadgerConfig struct {
	Path           string
	MaxMemoryMB    int
	GCInterval     time.Duration
	GCDiscardRatio float64
}

type BadgerCache struct {
	db     *badger.DB
	config BadgerConfig
	stopGC chan struct{}

	hits, misses, sets, deletes atomic.Uint64
}

func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	if cfg.GCInterval == 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCDiscardRatio == 0 {
		cfg.GCDiscardRatio = 0.5
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	if cfg.MaxMemoryMB > 0 {
		opts = opts.WithMemTableSize(int64(cfg.MaxMemoryMB) << 20)
	}
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	c := &BadgerCache{
		db:     db,
		config: cfg,
		stopGC: make(chan struct{}),
	}
	// Value log GC does not apply to in-memory mode.
	if cfg.Path != "" {
		go c.runGC()
	}
	return c, nil
}

func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		c.misses.Add(1)
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	c.hits.Add(1)
	return value, nil
}

func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	c.sets.Add(1)
	return nil
}

func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	c.deletes.Add(1)
	return nil
}

func (c *BadgerCache) Metrics() Metrics {
	return Metrics{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
}

func (c *BadgerCache) Close() error {
	close(c.stopGC)
	return c.db.Close()
}

func (c *BadgerCache) runGC() {
	ticker := time.NewTicker(c.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				if err := c.db.RunValueLogGC(c.config.GCDiscardRatio); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						log.Warn().Err(err).Msg("badger value log GC failed")
					}
					break
				}
			}
		case <-c.stopGC:
			return
		}
	}
}
