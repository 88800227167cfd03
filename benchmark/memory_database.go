package benchmark

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// MemoryDatabase implements the Database interface on top of go-ethereum's
// in-memory key-value store. Nothing is persisted, so the durable flag is a no-op.
type MemoryDatabase struct {
	db *memorydb.Database
}

// NewMemoryDatabase creates an empty in-memory database. The path and cache
// size are ignored.
func NewMemoryDatabase(cfg DatabaseConfig) (Database, error) {
	return &MemoryDatabase{db: memorydb.New()}, nil
}

// Get implements Database.Get
func (m *MemoryDatabase) Get(key []byte) ([]byte, error) {
	value, err := m.db.Get(key)
	if err == nil {
		return value, nil
	}
	// memorydb doesn't export its not-found error
	if ok, herr := m.db.Has(key); herr == nil && !ok {
		return nil, ErrKeyNotFound
	}
	return nil, err
}

// Set implements Database.Set
func (m *MemoryDatabase) Set(key, value []byte, durable bool) error {
	return m.db.Put(key, value)
}

// Delete implements Database.Delete
func (m *MemoryDatabase) Delete(key []byte, durable bool) error {
	return m.db.Delete(key)
}

// Scan implements Database.Scan. memorydb iterators only move forward, so
// reverse scans collect the whole range first.
func (m *MemoryDatabase) Scan(start, end []byte, reverse bool, limit int) ([]KV, error) {
	it := m.db.NewIterator(nil, start)
	defer it.Release()

	var out []KV
	for it.Next() {
		if end != nil && bytes.Compare(it.Key(), end) >= 0 {
			break
		}
		out = append(out, KV{Key: bytes.Clone(it.Key()), Value: bytes.Clone(it.Value())})
		if !reverse && limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	if reverse {
		slices.Reverse(out)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

// Flush is a no-op
func (m *MemoryDatabase) Flush() error {
	return nil
}

// Close implements Database.Close
func (m *MemoryDatabase) Close() error {
	return m.db.Close()
}

// GetMetrics implements Database.GetMetrics
func (m *MemoryDatabase) GetMetrics() DatabaseMetrics {
	return DatabaseMetrics{
		KeyCount:        uint64(m.db.Len()),
		BackendSpecific: map[string]interface{}{},
	}
}
