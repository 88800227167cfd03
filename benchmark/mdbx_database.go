package benchmark

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/erigontech/mdbx-go/mdbx"
)

const mdbxTable = "data"

// MDBXDatabase implements the Database interface using MDBX (libmdbx).
// MDBX serializes write transactions internally, so no extra locking is done here.
type MDBXDatabase struct {
	env    *mdbx.Env
	db     mdbx.DBI
	path   string
	closed atomic.Bool
}

// NewMDBXDatabase creates a new MDBX database instance
func NewMDBXDatabase(cfg DatabaseConfig) (Database, error) {
	path := cfg.Path
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create MDBX environment: %w", err)
	}

	upper := cfg.MDBXConfig.MapSize
	if upper <= 0 {
		upper = 1 << 40
	}
	if err := env.SetGeometry(-1, -1, int(upper), -1, -1, -1); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to set geometry: %w", err)
	}

	if err := env.SetOption(mdbx.OptMaxDB, 2); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to set max databases: %w", err)
	}

	maxReaders := cfg.MDBXConfig.MaxReaders
	if maxReaders == 0 {
		maxReaders = 128
	}
	if err := env.SetOption(mdbx.OptMaxReaders, uint64(maxReaders)); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to set max readers: %w", err)
	}

	// Commits don't fsync; durable writes call env.Sync explicitly.
	flags := uint(mdbx.SafeNoSync | mdbx.NoReadahead | mdbx.Coalesce)
	if cfg.MDBXConfig.WriteMap {
		flags |= mdbx.WriteMap
	}

	if err := env.Open(path, flags, 0644); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open MDBX environment: %w", err)
	}

	var db mdbx.DBI
	err = env.Update(func(txn *mdbx.Txn) error {
		var err error
		db, err = txn.OpenDBI(mdbxTable, mdbx.Create, nil, nil)
		return err
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &MDBXDatabase{
		env:  env,
		db:   db,
		path: path,
	}, nil
}

func (d *MDBXDatabase) sync(durable bool) error {
	if !durable {
		return nil
	}
	if err := d.env.Sync(true, false); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	return nil
}

// Set stores a key-value pair in the database
func (d *MDBXDatabase) Set(key, value []byte, durable bool) error {
	if d.closed.Load() {
		return ErrDatabaseClosed
	}

	err := d.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(d.db, key, value, 0)
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return d.sync(durable)
}

// Get retrieves a value by key from the database
func (d *MDBXDatabase) Get(key []byte) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	var value []byte
	err := d.env.View(func(txn *mdbx.Txn) error {
		val, err := txn.Get(d.db, key)
		if err != nil {
			return err
		}
		// Copy the value since it's only valid during the transaction
		value = bytes.Clone(val)
		return nil
	})
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return value, nil
}

// Delete removes a key from the database
func (d *MDBXDatabase) Delete(key []byte, durable bool) error {
	if d.closed.Load() {
		return ErrDatabaseClosed
	}

	err := d.env.Update(func(txn *mdbx.Txn) error {
		err := txn.Del(d.db, key, nil)
		if mdbx.IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return d.sync(durable)
}

// Scan walks a cursor over [start, end)
func (d *MDBXDatabase) Scan(start, end []byte, reverse bool, limit int) ([]KV, error) {
	if d.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	var out []KV
	err := d.env.View(func(txn *mdbx.Txn) error {
		cur, err := txn.OpenCursor(d.db)
		if err != nil {
			return err
		}
		defer cur.Close()

		var k, v []byte
		step := uint(mdbx.Next)
		switch {
		case reverse:
			k, v, err = d.seekLast(cur, end)
			step = uint(mdbx.Prev)
		case start != nil:
			k, v, err = cur.Get(start, nil, mdbx.SetRange)
		default:
			k, v, err = cur.Get(nil, nil, mdbx.First)
		}

		for err == nil && inRange(k, start, end) {
			out = append(out, KV{Key: bytes.Clone(k), Value: bytes.Clone(v)})
			if limit > 0 && len(out) >= limit {
				return nil
			}
			k, v, err = cur.Get(nil, nil, step)
		}
		if err != nil && !mdbx.IsNotFound(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}

	return out, nil
}

// seekLast positions the cursor on the greatest key below end
func (d *MDBXDatabase) seekLast(cur *mdbx.Cursor, end []byte) ([]byte, []byte, error) {
	if end == nil {
		return cur.Get(nil, nil, mdbx.Last)
	}
	k, v, err := cur.Get(end, nil, mdbx.SetRange)
	if mdbx.IsNotFound(err) {
		// every key is below end
		return cur.Get(nil, nil, mdbx.Last)
	}
	if err != nil {
		return nil, nil, err
	}
	if bytes.Compare(k, end) < 0 {
		return k, v, nil
	}
	return cur.Get(nil, nil, mdbx.Prev)
}

// Flush ensures all data is written to disk
func (d *MDBXDatabase) Flush() error {
	if d.closed.Load() {
		return ErrDatabaseClosed
	}
	return d.sync(true)
}

// Close closes the database
func (d *MDBXDatabase) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	// Close the environment (this also closes the database)
	d.env.Close()

	return nil
}

// GetMetrics returns database metrics
func (d *MDBXDatabase) GetMetrics() DatabaseMetrics {
	metrics := DatabaseMetrics{
		BackendSpecific: make(map[string]interface{}),
	}

	if d.closed.Load() {
		return metrics
	}

	var stat *mdbx.Stat
	err := d.env.View(func(txn *mdbx.Txn) (err error) {
		stat, err = txn.StatDBI(d.db)
		return err
	})
	if err != nil {
		return metrics
	}

	pages := stat.BranchPages + stat.LeafPages + stat.OverflowPages
	metrics.KeyCount = stat.Entries
	metrics.DataSize = pages * uint64(stat.PSize)
	mdbxMetrics := map[string]interface{}{
		"depth":          stat.Depth,
		"leaf_pages":     stat.LeafPages,
		"branch_pages":   stat.BranchPages,
		"overflow_pages": stat.OverflowPages,
	}
	if info, err := d.env.Info(nil); err == nil {
		mdbxMetrics["map_size"] = info.MapSize
	}
	metrics.BackendSpecific["mdbx"] = mdbxMetrics

	return metrics
}
