package benchmark

import (
	"fmt"
	"time"
)

// Store wraps a Database and attributes the cost of every call to a Registry.
// Every operation is timed with the wall clock and counted the moment it
// returns. Engine errors are returned wrapped; the caller treats them as fatal.
type Store struct {
	db   Database
	reg  *Registry
	hist *latencyHistograms
}

// NewStore creates a store recording into reg
func NewStore(db Database, reg *Registry) *Store {
	return &Store{
		db:   db,
		reg:  reg,
		hist: reg.newHistograms(),
	}
}

// Fork returns a store sharing the database and registry counters but owning
// its own latency histograms. Each worker goroutine gets one.
func (s *Store) Fork() *Store {
	return &Store{
		db:   s.db,
		reg:  s.reg,
		hist: s.reg.newHistograms(),
	}
}

// Registry returns the registry this store records into
func (s *Store) Registry() *Registry {
	return s.reg
}

func (s *Store) observe(kind OpKind, start time.Time) {
	elapsed := time.Since(start)
	s.reg.record(kind, elapsed)
	s.hist.record(kind, elapsed)
}

// Get looks up a key. A missing key returns found == false and no error.
func (s *Store) Get(key []byte) (value []byte, found bool, err error) {
	start := time.Now()
	value, err = s.db.Get(key)
	if err != nil {
		if IsKeyNotFound(err) {
			s.observe(OpPointRead, start)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get: %w", err)
	}
	s.observe(OpPointRead, start)
	return value, true, nil
}

// Insert writes or overwrites a key. The logical size of the write is
// accounted whether or not durable is set.
func (s *Store) Insert(key, value []byte, durable bool) error {
	start := time.Now()
	if err := s.db.Set(key, value, durable); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	s.observe(OpWrite, start)
	s.reg.addWritten(uint64(len(key) + len(value)))
	return nil
}

// Remove deletes a key and accounts valueLenHint as deleted bytes, so the
// value doesn't have to be read back first.
func (s *Store) Remove(key []byte, valueLenHint uint64, durable bool) error {
	start := time.Now()
	if err := s.db.Delete(key, durable); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	s.observe(OpDelete, start)
	s.reg.addDeleted(valueLenHint)
	return nil
}

// Range returns every pair with start <= key < end, descending if reverse.
// A nil end is unbounded.
func (s *Store) Range(start, end []byte, reverse bool) ([]KV, error) {
	began := time.Now()
	kvs, err := s.db.Scan(start, end, reverse, 0)
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	s.observe(OpRange, began)
	return kvs, nil
}

// Prefix returns up to limit pairs whose key starts with prefix
func (s *Store) Prefix(prefix []byte, reverse bool, limit int) ([]KV, error) {
	start := time.Now()
	var lower []byte
	if len(prefix) > 0 {
		lower = prefix
	}
	kvs, err := s.db.Scan(lower, prefixEnd(prefix), reverse, limit)
	if err != nil {
		return nil, fmt.Errorf("prefix: %w", err)
	}
	s.observe(OpRange, start)
	return kvs, nil
}

// LastEntry returns the entry with the greatest key, if any
func (s *Store) LastEntry() (KV, bool, error) {
	start := time.Now()
	kvs, err := s.db.Scan(nil, nil, true, 1)
	if err != nil {
		return KV{}, false, fmt.Errorf("last entry: %w", err)
	}
	s.observe(OpRange, start)
	if len(kvs) == 0 {
		return KV{}, false, nil
	}
	return kvs[0], true, nil
}

// Flush forces buffered writes to storage. It is not counted as an operation.
func (s *Store) Flush() error {
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
