package benchmark

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// OpKind identifies the class of a storage operation for accounting purposes
type OpKind int

const (
	OpWrite OpKind = iota
	OpPointRead
	OpRange
	OpDelete

	numOpKinds
)

var opKindNames = [numOpKinds]string{"write", "point_read", "range", "delete"}

func (k OpKind) String() string {
	if k < 0 || k >= numOpKinds {
		return "unknown"
	}
	return opKindNames[k]
}

// opCounter is the per-kind accumulator. Latency is kept in nanoseconds.
type opCounter struct {
	ops     atomic.Uint64
	latency atomic.Uint64
}

// Registry aggregates operation counts, latencies and byte totals for one run.
// All increments are atomic so any number of workers may record concurrently
// while the monitor drains latency once per tick.
type Registry struct {
	counters     [numOpKinds]opCounter
	writtenBytes atomic.Uint64
	deletedBytes atomic.Uint64

	mu         sync.Mutex
	histograms []*latencyHistograms
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) record(kind OpKind, elapsed time.Duration) {
	c := &r.counters[kind]
	c.latency.Add(uint64(elapsed.Nanoseconds()))
	c.ops.Add(1)
}

func (r *Registry) addWritten(n uint64) { r.writtenBytes.Add(n) }
func (r *Registry) addDeleted(n uint64) { r.deletedBytes.Add(n) }

// Ops returns the number of operations of the given kind recorded so far
func (r *Registry) Ops(kind OpKind) uint64 {
	return r.counters[kind].ops.Load()
}

// DrainLatency returns the accumulated latency (ns) of the given kind and resets it to zero
func (r *Registry) DrainLatency(kind OpKind) uint64 {
	return r.counters[kind].latency.Swap(0)
}

// WrittenBytes is the cumulative sum of len(key)+len(value) over all inserts
func (r *Registry) WrittenBytes() uint64 {
	return r.writtenBytes.Load()
}

// DeletedBytes is the cumulative sum of value length hints over all removes
func (r *Registry) DeletedBytes() uint64 {
	return r.deletedBytes.Load()
}

// LogicalSize is the live dataset size: written minus deleted bytes, floored at zero
func (r *Registry) LogicalSize() uint64 {
	written, deleted := r.WrittenBytes(), r.DeletedBytes()
	if deleted >= written {
		return 0
	}
	return written - deleted
}

// AverageLatency divides a drained latency accumulator by the number of
// operations in the same interval. No operations yields zero.
func AverageLatency(drained, opsDelta uint64) uint64 {
	return drained / max(1, opsDelta)
}

// latencyHistograms holds per-kind latency distributions owned by one worker.
// They are only read after the owner has stopped.
type latencyHistograms struct {
	kinds [numOpKinds]*hdrhistogram.Histogram
}

// track 1µs..60s with 3 significant figures
const (
	histMinMicros = 1
	histMaxMicros = 60 * 1000 * 1000
	histSigFigs   = 3
)

func newLatencyHistograms() *latencyHistograms {
	h := &latencyHistograms{}
	for i := range h.kinds {
		h.kinds[i] = hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs)
	}
	return h
}

func (h *latencyHistograms) record(kind OpKind, elapsed time.Duration) {
	us := elapsed.Microseconds()
	if us < histMinMicros {
		us = histMinMicros
	}
	// values beyond the trackable range are clamped rather than dropped
	if us > histMaxMicros {
		us = histMaxMicros
	}
	_ = h.kinds[kind].RecordValue(us)
}

func (r *Registry) newHistograms() *latencyHistograms {
	h := newLatencyHistograms()
	r.mu.Lock()
	r.histograms = append(r.histograms, h)
	r.mu.Unlock()
	return h
}

// LatencySummary describes the latency distribution of one operation kind
type LatencySummary struct {
	Kind  OpKind
	Count int64
	Mean  time.Duration
	P50   time.Duration
	P99   time.Duration
	P999  time.Duration
	Max   time.Duration
}

// Summary merges the latency histograms of every forked store. Callers must
// make sure all workers have stopped before calling it.
func (r *Registry) Summary() []LatencySummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]LatencySummary, 0, numOpKinds)
	for kind := OpKind(0); kind < numOpKinds; kind++ {
		merged := hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs)
		for _, h := range r.histograms {
			merged.Merge(h.kinds[kind])
		}
		if merged.TotalCount() == 0 {
			continue
		}
		summaries = append(summaries, LatencySummary{
			Kind:  kind,
			Count: merged.TotalCount(),
			Mean:  time.Duration(merged.Mean() * float64(time.Microsecond)),
			P50:   time.Duration(merged.ValueAtQuantile(50)) * time.Microsecond,
			P99:   time.Duration(merged.ValueAtQuantile(99)) * time.Microsecond,
			P999:  time.Duration(merged.ValueAtQuantile(99.9)) * time.Microsecond,
			Max:   time.Duration(merged.Max()) * time.Microsecond,
		})
	}
	return summaries
}
