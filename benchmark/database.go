package benchmark

import (
	"bytes"
	"errors"
	"fmt"
)

// Database defines the interface that all database backends must implement.
// This allows storage-bench to drive different storage engines while
// keeping the instrumentation in one place (see Store).
type Database interface {
	// Get retrieves a copy of the value for the given key.
	// Returns ErrKeyNotFound if the key doesn't exist
	Get(key []byte) ([]byte, error)

	// Set stores a key-value pair. When durable is true the write must
	// survive a crash once Set returns
	Set(key, value []byte, durable bool) error

	// Delete removes a key. Deleting a missing key is not an error
	Delete(key []byte, durable bool) error

	// Scan returns the pairs with start <= key < end in ascending order,
	// or descending when reverse is set. A nil start or end leaves that side
	// unbounded and limit <= 0 means no limit
	Scan(start, end []byte, reverse bool, limit int) ([]KV, error)

	// Flush ensures all pending writes are persisted to storage
	Flush() error

	// Close properly shuts down the database and releases resources
	Close() error

	// GetMetrics returns database-specific metrics for the end-of-run log
	GetMetrics() DatabaseMetrics
}

// KV is a key-value pair returned by scans
type KV struct {
	Key   []byte
	Value []byte
}

// DatabaseMetrics provides common metrics across different database backends
type DatabaseMetrics struct {
	CacheSize     int64  // bytes in cache (0 if no cache)
	CacheHits     int64  // cache hit count
	CacheMisses   int64  // cache miss count
	MemTableSize  int64  // bytes in memory tables
	CompactionOps int64  // compaction operations (LSM-specific)
	DataSize      uint64 // total data size as reported by the engine
	KeyCount      uint64 // total number of keys, if the engine knows it

	// Database-specific metrics (optional)
	BackendSpecific map[string]interface{}
}

// Database backend types
type DatabaseType string

const (
	DatabaseTypePebble  DatabaseType = "pebble"
	DatabaseTypeMDBX    DatabaseType = "mdbx"
	DatabaseTypeLevelDB DatabaseType = "leveldb"
	DatabaseTypeMemory  DatabaseType = "memory"
)

// DatabaseTypes lists every backend NewDatabase can open
var DatabaseTypes = []DatabaseType{
	DatabaseTypePebble,
	DatabaseTypeMDBX,
	DatabaseTypeLevelDB,
	DatabaseTypeMemory,
}

// DatabaseConfig holds configuration for database creation
type DatabaseConfig struct {
	Type DatabaseType
	Path string

	// CacheSize is the block cache size in bytes. Backends without a
	// configurable cache ignore it.
	CacheSize int64

	// MDBX-specific options
	MDBXConfig MDBXConfig
}

// MDBXConfig holds MDBX-specific configuration options
type MDBXConfig struct {
	MapSize    int64 // Maximum map size in bytes (-1 for default)
	MaxReaders int   // Maximum number of readers (default: 128)
	WriteMap   bool  // Use writeable memory map
}

// Common database errors
var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrDatabaseClosed  = errors.New("database is closed")
	ErrBackendNotFound = errors.New("database backend not found")
)

// NewDatabase creates a new database instance based on the configuration
func NewDatabase(cfg DatabaseConfig) (Database, error) {
	switch cfg.Type {
	case DatabaseTypePebble:
		return NewPebbleDatabase(cfg)
	case DatabaseTypeMDBX:
		return NewMDBXDatabase(cfg)
	case DatabaseTypeLevelDB:
		return NewLevelDBDatabase(cfg)
	case DatabaseTypeMemory:
		return NewMemoryDatabase(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, cfg.Type)
	}
}

// IsKeyNotFound abstracts away backend-specific not found errors
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when no such key exists (prefix is all 0xff).
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// inRange reports whether start <= key < end with nil bounds unbounded
func inRange(key, start, end []byte) bool {
	if start != nil && bytes.Compare(key, start) < 0 {
		return false
	}
	if end != nil && bytes.Compare(key, end) >= 0 {
		return false
	}
	return true
}

// iterator is the cursor shape shared by the pebble and leveldb bindings
type iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
}

// collect walks a bounded iterator in the requested direction, copying
// keys and values since they are only valid until the iterator moves.
func collect(it iterator, reverse bool, limit int) []KV {
	var out []KV
	valid := it.First
	step := it.Next
	if reverse {
		valid, step = it.Last, it.Prev
	}
	for ok := valid(); ok; ok = step() {
		out = append(out, KV{Key: bytes.Clone(it.Key()), Value: bytes.Clone(it.Value())})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
