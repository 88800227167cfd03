package benchmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunBenchmark orchestrates the full benchmark lifecycle. It returns
// ErrMemoryCeiling when the guardrail aborted the run; in that case the
// database is left open and the caller is expected to exit.
func RunBenchmark(cfg RunConfig) error {
	setupLog(cfg)

	sampler, err := NewProcessSampler()
	if err != nil {
		return err
	}
	return run(cfg, cfg.Duration(), sampler)
}

func run(cfg RunConfig, duration time.Duration, sampler Sampler) error {
	start := time.Now()
	info := CollectSystemInfo(start)
	initialLog(cfg, info)

	workload, err := CreateWorkload(cfg.workloadConfig())
	if err != nil {
		return fmt.Errorf("failed to create workload: %w", err)
	}

	log.Info().
		Str("workload", workload.Name()).
		Str("description", workload.GetDescription()).
		Msg("Using workload")

	if err := prepareDataDir(cfg.DataDir); err != nil {
		return err
	}

	db, err := NewDatabase(cfg.databaseConfig())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	out, err := createOutput(cfg.Out)
	if err != nil {
		db.Close()
		return err
	}
	if err := writePreamble(out, info, cfg); err != nil {
		out.Close()
		db.Close()
		return err
	}

	reg := NewRegistry()
	store := NewStore(db, reg)

	if cfg.MetricsAddr != "" {
		srv, err := StartMetricsServer(cfg.MetricsAddr, NewCollector(reg, cfg.Backend, cfg.Workload))
		if err != nil {
			out.Close()
			db.Close()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer srv.Shutdown()
	}

	stop := NewStopToken()
	timer := stop.StartTimer(duration)
	defer timer.Stop()

	monitor := NewMonitor(MonitorConfig{
		Interval: cfg.Granularity(),
		MemLimit: cfg.MemLimit,
		DataDir:  cfg.DataDir,
	}, sampler, reg, out, stop)

	monitorDone := make(chan error, 1)
	workersDone := make(chan error, 1)

	go func() { monitorDone <- monitor.Run(start) }()
	go func() { workersDone <- RunWorkers(workload, store, cfg.Threads, stop) }()

	var workersErr, monitorErr error
	select {
	case monitorErr = <-monitorDone:
		if errors.Is(monitorErr, ErrMemoryCeiling) {
			// workers may still be inside the engine, leave the database alone
			out.Close()
			return monitorErr
		}
		stop.Signal()
		workersErr = <-workersDone

	case workersErr = <-workersDone:
		if workersErr != nil {
			monitor.Abort()
		}
		monitorErr = <-monitorDone
		if errors.Is(monitorErr, ErrMemoryCeiling) {
			out.Close()
			return monitorErr
		}
	}

	out.Close()
	finalLog(reg, db, time.Since(start))

	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	if workersErr != nil {
		return fmt.Errorf("workload failed: %w", workersErr)
	}
	if monitorErr != nil {
		return fmt.Errorf("monitor failed: %w", monitorErr)
	}

	log.Info().Str("out", cfg.Out).Msg("Benchmark complete")
	return nil
}

// prepareDataDir removes whatever a previous run left behind and creates
// an empty directory
func prepareDataDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove stale data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

func createOutput(path string) (*RecordWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return CreateRecordWriter(path)
}

func writePreamble(out *RecordWriter, info SystemInfo, cfg RunConfig) error {
	if err := out.WriteObject(info); err != nil {
		return err
	}
	return out.WriteObject(cfg)
}

func initialLog(cfg RunConfig, info SystemInfo) {
	cacheInfo := "disabled"
	if cfg.CacheSize >= 0 {
		cacheInfo = fmt.Sprintf("enabled, size: %d bytes", uint64(cfg.CacheSize))
	}

	log.Info().
		Str("os", info.OS).
		Str("kernel", info.Kernel).
		Str("cpu", info.CPU).
		Uint64("mem", info.Mem).
		Str("run_id", info.RunID).
		Msg("System")

	log.Info().
		Str("display_name", cfg.DisplayName).
		Str("backend", cfg.Backend).
		Str("workload", cfg.Workload).
		Str("data_dir", cfg.DataDir).
		Str("out", cfg.Out).
		Uint64("minutes", cfg.Minutes).
		Uint64("granularity_ms", cfg.GranularityMs).
		Int("threads", cfg.Threads).
		Uint64("items", cfg.Items).
		Int("value_size", cfg.ValueSize).
		Bool("fsync", cfg.Fsync).
		Int64("seed", cfg.Seed).
		Uint64("mem_limit", cfg.MemLimit).
		Str("cache", cacheInfo).
		Msg("Starting benchmark")
}

func finalLog(reg *Registry, db Database, elapsed time.Duration) {
	for _, s := range reg.Summary() {
		log.Info().
			Str("kind", s.Kind.String()).
			Int64("count", s.Count).
			Float64("ops_per_sec", float64(s.Count)/elapsed.Seconds()).
			Dur("mean", s.Mean).
			Dur("p50", s.P50).
			Dur("p99", s.P99).
			Dur("p999", s.P999).
			Dur("max", s.Max).
			Msg("Latency")
	}

	m := db.GetMetrics()
	event := log.Info().
		Int64("cache_size", m.CacheSize).
		Int64("cache_hits", m.CacheHits).
		Int64("cache_misses", m.CacheMisses).
		Int64("memtable_size", m.MemTableSize).
		Int64("compactions", m.CompactionOps).
		Uint64("data_size", m.DataSize).
		Uint64("key_count", m.KeyCount).
		Uint64("written_bytes", reg.WrittenBytes()).
		Uint64("deleted_bytes", reg.DeletedBytes())
	if len(m.BackendSpecific) > 0 {
		event = event.Interface("backend", m.BackendSpecific)
	}
	event.Msg("Database metrics")
}

func setupLog(cfg RunConfig) {
	if strings.ToLower(cfg.LogFormat) == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = log.Output(os.Stdout)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}
}
