package benchmark

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBDatabase implements the Database interface for goleveldb
type LevelDBDatabase struct {
	db *leveldb.DB
}

// NewLevelDBDatabase creates a new LevelDB database instance
func NewLevelDBDatabase(cfg DatabaseConfig) (Database, error) {
	opts := &opt.Options{}
	if cfg.CacheSize > 0 {
		opts.BlockCacheCapacity = int(cfg.CacheSize)
	} else if cfg.CacheSize < 0 {
		opts.BlockCacher = opt.NoCacher
	}

	db, err := leveldb.OpenFile(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}

	log.Info().
		Int64("block_cache_size", cfg.CacheSize).
		Msg("Created LevelDB")

	return &LevelDBDatabase{db: db}, nil
}

func levelWriteOptions(durable bool) *opt.WriteOptions {
	return &opt.WriteOptions{Sync: durable}
}

// Get implements Database.Get for LevelDB
func (l *LevelDBDatabase) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		if errors.Is(err, leveldb.ErrClosed) {
			return nil, ErrDatabaseClosed
		}
		return nil, err
	}
	return value, nil
}

// Set implements Database.Set for LevelDB
func (l *LevelDBDatabase) Set(key, value []byte, durable bool) error {
	return l.db.Put(key, value, levelWriteOptions(durable))
}

// Delete implements Database.Delete for LevelDB
func (l *LevelDBDatabase) Delete(key []byte, durable bool) error {
	return l.db.Delete(key, levelWriteOptions(durable))
}

// Scan implements Database.Scan for LevelDB
func (l *LevelDBDatabase) Scan(start, end []byte, reverse bool, limit int) ([]KV, error) {
	iter := l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	defer iter.Release()

	out := collect(iter, reverse, limit)
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Flush compacts the whole key space, goleveldb doesn't expose a plain
// memtable flush.
func (l *LevelDBDatabase) Flush() error {
	return l.db.CompactRange(util.Range{})
}

// Close implements Database.Close for LevelDB
func (l *LevelDBDatabase) Close() error {
	return l.db.Close()
}

// GetMetrics implements Database.GetMetrics for LevelDB
func (l *LevelDBDatabase) GetMetrics() DatabaseMetrics {
	metrics := DatabaseMetrics{
		BackendSpecific: make(map[string]interface{}),
	}

	var stats leveldb.DBStats
	if err := l.db.Stats(&stats); err != nil {
		return metrics
	}

	metrics.CacheSize = int64(stats.BlockCacheSize)
	var size int64
	for _, s := range stats.LevelSizes {
		size += s
	}
	metrics.DataSize = uint64(size)

	metrics.BackendSpecific["leveldb"] = map[string]interface{}{
		"write_delay_count": stats.WriteDelayCount,
		"io_write":          stats.IOWrite,
		"io_read":           stats.IORead,
		"alive_snapshots":   stats.AliveSnapshots,
		"alive_iterators":   stats.AliveIterators,
	}

	return metrics
}
