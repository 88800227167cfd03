package benchmark

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrInvariant is returned by a worker when the store contradicts what the
// workload knows it wrote, e.g. a pre-populated key reads back as absent
var ErrInvariant = errors.New("workload invariant violated")

// Workload defines the interface for different benchmark workload types
type Workload interface {
	// Name returns the workload identifier
	Name() string

	// GetDescription returns a detailed description of the workload
	GetDescription() string

	// Prepopulate loads the initial dataset. It runs once, single-threaded,
	// before any worker starts and should give up early if stop is signaled.
	Prepopulate(store *Store, stop *StopToken) error

	// NewWorker creates the per-goroutine state for worker id
	NewWorker(id int) Worker
}

// Worker performs a workload's operations, one store call per Step.
// A worker is only ever used by one goroutine.
type Worker interface {
	Step(store *Store) error
}

// WorkloadType represents available workload types
type WorkloadType string

const (
	WorkloadTaskA           WorkloadType = "task-a"
	WorkloadTaskB           WorkloadType = "task-b"
	WorkloadTaskC           WorkloadType = "task-c"
	WorkloadTaskD           WorkloadType = "task-d"
	WorkloadTaskE           WorkloadType = "task-e"
	WorkloadTimeseriesWrite WorkloadType = "timeseries-write"
	WorkloadFeed            WorkloadType = "feed"
	WorkloadWebtable        WorkloadType = "webtable"
)

// WorkloadTypes lists every workload CreateWorkload accepts
var WorkloadTypes = []WorkloadType{
	WorkloadTaskA,
	WorkloadTaskB,
	WorkloadTaskC,
	WorkloadTaskD,
	WorkloadTaskE,
	WorkloadTimeseriesWrite,
	WorkloadFeed,
	WorkloadWebtable,
}

// WorkloadConfig contains configuration specific to workloads
type WorkloadConfig struct {
	Type         WorkloadType
	Items        uint64  // keys loaded before the timed phase
	ValueSize    int     // value size in bytes
	ZipfExponent float64 // skew of the Zipfian key choice
	Seed         int64   // RNG seed, worker i uses Seed+i
	HashKeys     bool    // Keccak-256 the Zipfian keys to scatter them
	Durable      bool    // fsync every write

	// feed
	Users     uint64
	FeedPosts int

	// webtable
	Retention uint64
}

// CreateWorkload creates a workload instance based on the type
func CreateWorkload(cfg WorkloadConfig) (Workload, error) {
	switch cfg.Type {
	case WorkloadTaskA:
		return newZipfWorkload(cfg, 0.5, "Zipfian keys, 50% overwrite and 50% read")
	case WorkloadTaskB:
		return newZipfWorkload(cfg, 0.05, "Zipfian keys, 5% overwrite and 95% read")
	case WorkloadTaskC:
		return newZipfWorkload(cfg, 0, "Zipfian keys, read only")
	case WorkloadTaskD:
		return newMonotonicWorkload(cfg, 0.05, true,
			"Monotonic keys, 5% append and 95% read of the most recent key"), nil
	case WorkloadTaskE:
		return newMonotonicWorkload(cfg, 0.95, true,
			"Monotonic keys, 95% append and 5% read of the most recent key"), nil
	case WorkloadTimeseriesWrite:
		return newMonotonicWorkload(cfg, 1, false,
			"Append-only stream of monotonically increasing keys"), nil
	case WorkloadFeed:
		return newFeedWorkload(cfg)
	case WorkloadWebtable:
		return newWebtableWorkload(cfg), nil
	default:
		return nil, fmt.Errorf("unknown workload %q", cfg.Type)
	}
}

// RunWorkers pre-populates the store, flushes it and then runs threads
// workers until stop is signaled. Each worker loop calls Step once and then
// checks the token. The first worker error signals stop and is returned
// after every worker has exited.
func RunWorkers(workload Workload, store *Store, threads int, stop *StopToken) error {
	if err := workload.Prepopulate(store, stop); err != nil {
		stop.Signal()
		return fmt.Errorf("prepopulate: %w", err)
	}
	if err := store.Flush(); err != nil {
		stop.Signal()
		return err
	}
	// the dataset may be incomplete, workers would trip on missing keys
	if stop.IsSignaled() {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for id := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()

			local := store.Fork()
			worker := workload.NewWorker(id)
			for {
				if err := worker.Step(local); err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("worker %d: %w", id, err)
					})
					stop.Signal()
					return
				}
				if stop.IsSignaled() {
					return
				}
			}
		}()
	}
	wg.Wait()

	return firstErr
}

// workerRand returns the deterministic RNG of worker id
func workerRand(seed int64, id int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(id)))
}

// generateValue fills buf with random bytes and returns it
func generateValue(rng *rand.Rand, buf []byte) []byte {
	rng.Read(buf)
	return buf
}

// prepopulateCheckEvery is how many inserts pass between stop token checks
// during pre-population
const prepopulateCheckEvery = 1024
