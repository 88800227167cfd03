package benchmark

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

// PebbleDatabase implements the Database interface for Pebble
type PebbleDatabase struct {
	db    *pebble.DB
	cache *pebble.Cache
}

// NewPebbleDatabase creates a new Pebble database instance
func NewPebbleDatabase(cfg DatabaseConfig) (Database, error) {
	opts := &pebble.Options{}

	var cache *pebble.Cache
	if cfg.CacheSize >= 0 {
		cache = pebble.NewCache(cfg.CacheSize)
		opts.Cache = cache

		log.Info().
			Int64("block_cache_size", cfg.CacheSize).
			Msg("Created Pebble with block cache")
	} else {
		log.Info().Msg("Created Pebble with block cache disabled")
	}

	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		if cache != nil {
			cache.Unref()
		}
		return nil, fmt.Errorf("failed to open pebble: %w", err)
	}

	return &PebbleDatabase{
		db:    db,
		cache: cache,
	}, nil
}

func writeOptions(durable bool) *pebble.WriteOptions {
	if durable {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Set implements Database.Set for Pebble
func (p *PebbleDatabase) Set(key, value []byte, durable bool) error {
	if p.db == nil {
		return ErrDatabaseClosed
	}
	return p.db.Set(key, value, writeOptions(durable))
}

// Get implements Database.Get for Pebble
func (p *PebbleDatabase) Get(key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, ErrDatabaseClosed
	}
	value, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	// value is only valid until closer is closed
	out := bytes.Clone(value)
	return out, closer.Close()
}

// Delete implements Database.Delete for Pebble
func (p *PebbleDatabase) Delete(key []byte, durable bool) error {
	if p.db == nil {
		return ErrDatabaseClosed
	}
	return p.db.Delete(key, writeOptions(durable))
}

// Scan implements Database.Scan for Pebble using a bounded iterator
func (p *PebbleDatabase) Scan(start, end []byte, reverse bool, limit int) ([]KV, error) {
	if p.db == nil {
		return nil, ErrDatabaseClosed
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, err
	}
	out := collect(iter, reverse, limit)
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Flush implements Database.Flush for Pebble
func (p *PebbleDatabase) Flush() error {
	if p.db == nil {
		return ErrDatabaseClosed
	}
	return p.db.Flush()
}

// Close implements Database.Close for Pebble
func (p *PebbleDatabase) Close() error {
	var err error
	if p.db != nil {
		err = p.db.Close()
		p.db = nil
	}

	if p.cache != nil {
		p.cache.Unref()
		p.cache = nil
	}

	return err
}

// GetMetrics implements Database.GetMetrics for Pebble
func (p *PebbleDatabase) GetMetrics() DatabaseMetrics {
	metrics := DatabaseMetrics{
		BackendSpecific: make(map[string]interface{}),
	}

	if p.db == nil {
		return metrics
	}

	pebbleMetrics := p.db.Metrics()

	metrics.MemTableSize = int64(pebbleMetrics.MemTable.Size)
	metrics.CompactionOps = pebbleMetrics.Compact.Count
	metrics.DataSize = pebbleMetrics.DiskSpaceUsage()

	if p.cache != nil {
		cacheMetrics := p.cache.Metrics()
		metrics.CacheSize = cacheMetrics.Size
		metrics.CacheHits = cacheMetrics.Hits
		metrics.CacheMisses = cacheMetrics.Misses
	}

	metrics.BackendSpecific["pebble"] = map[string]interface{}{
		"flushes":           pebbleMetrics.Flush.Count,
		"compactions":       pebbleMetrics.Compact.Count,
		"read_amp":          pebbleMetrics.ReadAmp(),
		"wal_bytes_in":      pebbleMetrics.WAL.BytesIn,
		"wal_bytes_written": pebbleMetrics.WAL.BytesWritten,
	}

	return metrics
}
