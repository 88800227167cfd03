package benchmark

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync/atomic"
)

// MonotonicWorkload appends keys from one shared, ever increasing sequence
// and optionally reads back the most recent one (YCSB D and E, time series)
type MonotonicWorkload struct {
	config      WorkloadConfig
	description string
	appendRatio float64
	prepopulate bool

	next atomic.Uint64 // next sequence to hand out
	// latest is one past the highest sequence whose insert has completed,
	// zero while nothing has been written
	latest atomic.Uint64
}

func newMonotonicWorkload(cfg WorkloadConfig, appendRatio float64, prepopulate bool, description string) *MonotonicWorkload {
	return &MonotonicWorkload{
		config:      cfg,
		description: description,
		appendRatio: appendRatio,
		prepopulate: prepopulate,
	}
}

func (w *MonotonicWorkload) Name() string {
	return string(w.config.Type)
}

func (w *MonotonicWorkload) GetDescription() string {
	return w.description
}

func sequenceKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), seq)
}

// completed raises latest to seq+1 unless a later sequence got there first
func (w *MonotonicWorkload) completed(seq uint64) {
	for {
		cur := w.latest.Load()
		if cur > seq || w.latest.CompareAndSwap(cur, seq+1) {
			return
		}
	}
}

func (w *MonotonicWorkload) Prepopulate(store *Store, stop *StopToken) error {
	if !w.prepopulate {
		return nil
	}

	rng := rand.New(rand.NewSource(w.config.Seed))
	value := make([]byte, w.config.ValueSize)

	for seq := uint64(0); seq < w.config.Items; seq++ {
		if seq%prepopulateCheckEvery == 0 && stop.IsSignaled() {
			return nil
		}
		if err := store.Insert(sequenceKey(seq), generateValue(rng, value), w.config.Durable); err != nil {
			return err
		}
		w.next.Store(seq + 1)
		w.completed(seq)
	}
	return nil
}

func (w *MonotonicWorkload) NewWorker(id int) Worker {
	return &monotonicWorker{
		workload: w,
		rng:      workerRand(w.config.Seed, id),
		value:    make([]byte, w.config.ValueSize),
	}
}

type monotonicWorker struct {
	workload *MonotonicWorkload
	rng      *rand.Rand
	value    []byte
}

func (w *monotonicWorker) Step(store *Store) error {
	wl := w.workload

	latest := wl.latest.Load()
	if latest == 0 || wl.appendRatio >= 1 || w.rng.Float64() < wl.appendRatio {
		seq := wl.next.Add(1) - 1
		if err := store.Insert(sequenceKey(seq), generateValue(w.rng, w.value), wl.config.Durable); err != nil {
			return err
		}
		wl.completed(seq)
		return nil
	}

	_, found, err := store.Get(sequenceKey(latest - 1))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: latest key %d not found", ErrInvariant, latest-1)
	}
	return nil
}
