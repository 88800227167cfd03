package benchmark

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRunConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.Backend = "pebble"
	cfg.Workload = "task-a"
	cfg.DataDir = ".data/pebble"
	cfg.Out = "pebble.jsonl"
	return cfg
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		isErr  bool
	}{
		{
			name:   "valid config",
			mutate: func(*RunConfig) {},
		},
		{
			name:   "every backend is accepted",
			mutate: func(c *RunConfig) { c.Backend = "mdbx" },
		},
		{
			name:   "unknown backend",
			mutate: func(c *RunConfig) { c.Backend = "rocksdb" },
			isErr:  true,
		},
		{
			name:   "unknown workload",
			mutate: func(c *RunConfig) { c.Workload = "task-z" },
			isErr:  true,
		},
		{
			name:   "missing data dir",
			mutate: func(c *RunConfig) { c.DataDir = "" },
			isErr:  true,
		},
		{
			name:   "missing out",
			mutate: func(c *RunConfig) { c.Out = "" },
			isErr:  true,
		},
		{
			name:   "zero minutes",
			mutate: func(c *RunConfig) { c.Minutes = 0 },
			isErr:  true,
		},
		{
			name:   "zero granularity",
			mutate: func(c *RunConfig) { c.GranularityMs = 0 },
			isErr:  true,
		},
		{
			name:   "zero threads",
			mutate: func(c *RunConfig) { c.Threads = 0 },
			isErr:  true,
		},
		{
			name:   "non-positive zipf exponent",
			mutate: func(c *RunConfig) { c.ZipfExponent = 0 },
			isErr:  true,
		},
		{
			name:   "bad log format",
			mutate: func(c *RunConfig) { c.LogFormat = "xml" },
			isErr:  true,
		},
		{
			name:   "metrics address",
			mutate: func(c *RunConfig) { c.MetricsAddr = "localhost:9090" },
		},
		{
			name:   "bad metrics address",
			mutate: func(c *RunConfig) { c.MetricsAddr = "not an address" },
			isErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRunConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRunConfigDisplayNameDefaultsToBackend(t *testing.T) {
	cfg := validRunConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pebble", cfg.DisplayName)

	cfg = validRunConfig()
	cfg.DisplayName = "pebble (no cache)"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pebble (no cache)", cfg.DisplayName)
}

func TestRunConfigDurations(t *testing.T) {
	cfg := validRunConfig()
	cfg.Minutes = 2
	cfg.GranularityMs = 250
	assert.Equal(t, 2*time.Minute, cfg.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Granularity())
}

func TestLoadRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: leveldb
workload: feed
data_dir: /tmp/bench
out: feed.jsonl
threads: 4
users: 500
fsync: true
`), 0o644))

	cfg := DefaultRunConfig()
	require.NoError(t, LoadRunConfig(path, &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "leveldb", cfg.Backend)
	assert.Equal(t, "feed", cfg.Workload)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, uint64(500), cfg.Users)
	assert.True(t, cfg.Fsync)
	// untouched keys keep their defaults
	assert.Equal(t, uint64(500), cfg.GranularityMs)
	assert.Equal(t, 0.99, cfg.ZipfExponent)
}

func TestLoadRunConfigErrors(t *testing.T) {
	cfg := DefaultRunConfig()
	require.Error(t, LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: [1, 2"), 0o644))
	require.Error(t, LoadRunConfig(path, &cfg))
}

func TestRunConfigProjections(t *testing.T) {
	cfg := validRunConfig()
	cfg.Fsync = true
	cfg.HashKeys = true

	wc := cfg.workloadConfig()
	assert.Equal(t, WorkloadTaskA, wc.Type)
	assert.True(t, wc.Durable)
	assert.True(t, wc.HashKeys)
	assert.Equal(t, cfg.Items, wc.Items)

	dc := cfg.databaseConfig()
	assert.Equal(t, DatabaseTypePebble, dc.Type)
	assert.Equal(t, cfg.DataDir, dc.Path)
	assert.Equal(t, cfg.CacheSize, dc.CacheSize)
	assert.Equal(t, int64(-1), dc.MDBXConfig.MapSize)
}
