package benchmark

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

// WebtableWorkload keeps a bounded window of crawled pages: pages are
// appended under increasing keys and the oldest are removed once more than
// Retention are live. Readers scan short windows or fetch the newest page.
type WebtableWorkload struct {
	config WorkloadConfig
	next   atomic.Uint64 // next sequence to hand out
	head   atomic.Uint64 // every sequence below head is stored
	tail   atomic.Uint64 // oldest live page

	mu      sync.Mutex
	settled map[uint64]struct{} // stored sequences above head
}

const (
	webtableAppendRatio = 0.60
	webtableRangeRatio  = 0.25
	webtableWindow      = 16
)

func newWebtableWorkload(cfg WorkloadConfig) *WebtableWorkload {
	return &WebtableWorkload{config: cfg, settled: map[uint64]struct{}{}}
}

// stored moves head past seq and past any later sequences that finished
// before it, so head never overtakes a page whose insert is in flight
func (w *WebtableWorkload) stored(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	head := w.head.Load()
	if seq != head {
		w.settled[seq] = struct{}{}
		return
	}
	head++
	for {
		if _, ok := w.settled[head]; !ok {
			break
		}
		delete(w.settled, head)
		head++
	}
	w.head.Store(head)
}

func (w *WebtableWorkload) Name() string {
	return string(WorkloadWebtable)
}

func (w *WebtableWorkload) GetDescription() string {
	return fmt.Sprintf("Bounded webtable of %d pages, 60%% append, 25%% %d-page range and 15%% newest page, oldest removed past retention",
		w.config.Retention, webtableWindow)
}

// pages start empty and grow during the timed phase
func (w *WebtableWorkload) Prepopulate(*Store, *StopToken) error {
	return nil
}

func (w *WebtableWorkload) NewWorker(id int) Worker {
	return &webtableWorker{
		workload: w,
		rng:      workerRand(w.config.Seed, id),
		page:     make([]byte, w.config.ValueSize),
	}
}

type webtableWorker struct {
	workload *WebtableWorkload
	rng      *rand.Rand
	page     []byte
}

func (w *webtableWorker) Step(store *Store) error {
	wl := w.workload

	// tail first, so tail <= head holds for the pair
	tail := wl.tail.Load()
	head := wl.head.Load()
	if head-tail > wl.config.Retention && wl.tail.CompareAndSwap(tail, tail+1) {
		hint := uint64(8 + wl.config.ValueSize)
		return store.Remove(sequenceKey(tail), hint, wl.config.Durable)
	}

	choice := w.rng.Float64()
	switch {
	case choice < webtableAppendRatio || head == tail:
		seq := wl.next.Add(1) - 1
		if err := store.Insert(sequenceKey(seq), generateValue(w.rng, w.page), wl.config.Durable); err != nil {
			return err
		}
		wl.stored(seq)
		return nil

	case choice < webtableAppendRatio+webtableRangeRatio:
		start := tail + uint64(w.rng.Int63n(int64(head-tail)))
		_, err := store.Range(sequenceKey(start), sequenceKey(start+webtableWindow), false)
		return err

	default:
		_, _, err := store.LastEntry()
		return err
	}
}
