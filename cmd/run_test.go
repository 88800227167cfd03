package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tclemos/storage-bench/benchmark"
)

func TestApplyConfigFileFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: leveldb
workload: task-b
threads: 8
items: 5000
`), 0o644))

	cfg := benchmark.DefaultRunConfig()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "")
	flags.IntVar(&cfg.Threads, "threads", cfg.Threads, "")
	flags.Uint64Var(&cfg.Items, "items", cfg.Items, "")
	flags.BoolVar(&cfg.Fsync, "fsync", cfg.Fsync, "")

	require.NoError(t, flags.Parse([]string{"--threads", "2", "--fsync"}))
	require.NoError(t, applyConfigFile(flags, path, &cfg))

	assert.Equal(t, "leveldb", cfg.Backend, "from the file")
	assert.Equal(t, "task-b", cfg.Workload, "from the file")
	assert.Equal(t, uint64(5000), cfg.Items, "from the file")
	assert.Equal(t, 2, cfg.Threads, "explicit flag beats the file")
	assert.True(t, cfg.Fsync)
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{
		"backend", "data-dir", "out", "display-name", "workload", "minutes",
		"granularity-ms", "cache-size", "threads", "items", "value-size", "fsync",
		"zipf-exponent", "seed", "hash-keys", "users", "feed-posts", "retention",
		"mem-limit", "metrics-addr", "log-format", "config",
	} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, "500", runCmd.Flags().Lookup("granularity-ms").DefValue)
	assert.Equal(t, "16000000", runCmd.Flags().Lookup("cache-size").DefValue)
	assert.Equal(t, "1", runCmd.Flags().Lookup("minutes").DefValue)
}

func TestReportCommandFlags(t *testing.T) {
	out := reportCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
	assert.Equal(t, "out.html", out.DefValue)
	assert.NotNil(t, reportCmd.Flags().Lookup("template"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "clean run", err: nil, want: 0},
		{name: "memory ceiling", err: benchmark.ErrMemoryCeiling, want: 137},
		{name: "wrapped memory ceiling", err: fmt.Errorf("monitor: %w", benchmark.ErrMemoryCeiling), want: 137},
		{name: "workload failure", err: errors.New("worker 0: boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
