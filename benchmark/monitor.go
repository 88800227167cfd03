package benchmark

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMemoryCeiling is returned by the monitor when the process resident
// memory reaches the configured limit
var ErrMemoryCeiling = errors.New("memory ceiling reached")

// ExitCodeMemoryCeiling is the process exit status after a memory abort
const ExitCodeMemoryCeiling = 137

// MonitorConfig controls the sampling loop
type MonitorConfig struct {
	Interval time.Duration
	MemLimit uint64 // bytes, 0 disables the guardrail
	DataDir  string
}

// Monitor samples the process and the registry once per interval and
// writes one row per tick. It owns the RecordWriter once started.
type Monitor struct {
	cfg     MonitorConfig
	sampler Sampler
	reg     *Registry
	out     *RecordWriter
	stop    *StopToken
	aborted atomic.Bool

	prevOps [numOpKinds]uint64
}

// NewMonitor creates a monitor. Nothing happens until Run is called.
func NewMonitor(cfg MonitorConfig, sampler Sampler, reg *Registry, out *RecordWriter, stop *StopToken) *Monitor {
	return &Monitor{
		cfg:     cfg,
		sampler: sampler,
		reg:     reg,
		out:     out,
		stop:    stop,
	}
}

// Run writes the header and then samples until the stop token is signaled
// or the memory guardrail trips. On a clean stop the fin line is written and
// the output closed; on a guardrail breach the token is signaled and
// ErrMemoryCeiling returned.
func (m *Monitor) Run(start time.Time) error {
	if err := m.out.WriteHeader(Columns); err != nil {
		return err
	}

	for {
		time.Sleep(m.cfg.Interval)

		row, rss, err := m.tick(time.Since(start))
		if err != nil {
			return err
		}
		if err := m.out.WriteRow(row); err != nil {
			return err
		}

		if m.cfg.MemLimit > 0 && rss >= m.cfg.MemLimit {
			log.Error().
				Uint64("rss_bytes", rss).
				Uint64("mem_limit", m.cfg.MemLimit).
				Msg("Memory ceiling reached, aborting run")
			m.stop.Signal()
			return ErrMemoryCeiling
		}

		if m.aborted.Load() {
			return m.out.Close()
		}
		if m.stop.IsSignaled() {
			if err := m.out.WriteFin(); err != nil {
				return err
			}
			return m.out.Close()
		}
	}
}

// Abort makes the monitor close the output after its next row without
// writing the fin line, which leaves the run marked incomplete
func (m *Monitor) Abort() {
	m.aborted.Store(true)
}

// tick builds one row in Columns order and returns the sampled RSS
func (m *Monitor) tick(elapsed time.Duration) ([]any, uint64, error) {
	sample, err := m.sampler.Sample()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to sample process: %w", err)
	}
	diskSpace, err := dirSize(m.cfg.DataDir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to measure data directory: %w", err)
	}

	var ops, latencies [numOpKinds]uint64
	for kind := OpKind(0); kind < numOpKinds; kind++ {
		// record adds latency before the count, so every op counted here
		// has its latency in this drain
		ops[kind] = m.reg.Ops(kind)
		drained := m.reg.DrainLatency(kind)
		latencies[kind] = AverageLatency(drained, ops[kind]-m.prevOps[kind])
	}
	m.prevOps = ops

	written := m.reg.WrittenBytes()
	deleted := m.reg.DeletedBytes()

	row := []any{
		elapsed.Milliseconds(),
		sample.CPUPercent,
		sample.ResidentBytes / 1024,
		diskSpace / 1024,
		sample.DiskWriteBytes / 1024,
		sample.DiskReadBytes / 1024,

		ops[OpWrite],
		ops[OpPointRead],
		ops[OpRange],
		ops[OpDelete],

		latencies[OpWrite],
		latencies[OpPointRead],
		latencies[OpRange],
		latencies[OpDelete],

		written / 1024,
		deleted / 1024,

		ratio(sample.DiskWriteBytes, written),
		ratio(diskSpace, m.reg.LogicalSize()),
	}

	log.Debug().
		Int64("time_ms", elapsed.Milliseconds()).
		Float64("cpu", sample.CPUPercent).
		Uint64("mem_kib", sample.ResidentBytes/1024).
		Uint64("disk_space_kib", diskSpace/1024).
		Uint64("write_ops", ops[OpWrite]).
		Uint64("point_read_ops", ops[OpPointRead]).
		Uint64("range_ops", ops[OpRange]).
		Uint64("delete_ops", ops[OpDelete]).
		Msg("Tick")

	return row, sample.ResidentBytes, nil
}

// ratio returns num/den, or nil (JSON null) when den is zero
func ratio(num, den uint64) any {
	if den == 0 {
		return nil
	}
	return float64(num) / float64(den)
}
