package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunConfig(t *testing.T) RunConfig {
	cfg := DefaultRunConfig()
	dir := t.TempDir()
	cfg.Backend = string(DatabaseTypeMemory)
	cfg.Workload = string(WorkloadTaskA)
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Out = filepath.Join(dir, "results", "memory.jsonl")
	cfg.GranularityMs = 50
	cfg.Items = 100
	cfg.Threads = 2
	cfg.MemLimit = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunReachesFin(t *testing.T) {
	cfg := testRunConfig(t)

	// a stale file from an earlier run must not survive
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	stale := filepath.Join(cfg.DataDir, "stale")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	duration := 200 * time.Millisecond
	require.NoError(t, run(cfg, duration, &fakeSampler{}))

	assert.NoFileExists(t, stale)

	data, err := os.ReadFile(cfg.Out)
	require.NoError(t, err)
	lines := readLines(t, data)
	require.GreaterOrEqual(t, len(lines), 5)

	var info SystemInfo
	require.NoError(t, json.Unmarshal(lines[0], &info))
	assert.NotEmpty(t, info.RunID)
	assert.Positive(t, info.TS)

	var written RunConfig
	require.NoError(t, json.Unmarshal(lines[1], &written))
	assert.Equal(t, cfg, written)
	assert.Equal(t, "memory", written.DisplayName)

	var header []string
	require.NoError(t, json.Unmarshal(lines[2], &header))
	assert.Equal(t, Columns, header)

	assert.JSONEq(t, `{"fin":true}`, string(lines[len(lines)-1]))

	// one interval of grace plus scheduling slack
	limit := float64((duration + cfg.Granularity() + 100*time.Millisecond).Milliseconds())
	var lastOps float64
	for _, row := range decodeRows(t, lines[3:len(lines)-1]) {
		require.Len(t, row, len(header))
		assert.LessOrEqual(t, row[0].(float64), limit)

		ops := row[6].(float64) + row[7].(float64)
		assert.GreaterOrEqual(t, ops, lastOps, "op counts never decrease")
		lastOps = ops
	}
	assert.Positive(t, lastOps)
}

func TestRunMemoryCeiling(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.MemLimit = 1

	err := run(cfg, time.Minute, &fakeSampler{sample: ProcessSample{ResidentBytes: 1 << 20}})
	require.ErrorIs(t, err, ErrMemoryCeiling)

	data, err := os.ReadFile(cfg.Out)
	require.NoError(t, err)
	lines := readLines(t, data)
	require.Len(t, lines, 4, "system info, config, header, one row")
	assert.NotContains(t, string(data), `"fin"`)
}

func TestRunRejectsUnknownWorkload(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.Workload = "task-z"

	require.Error(t, run(cfg, time.Second, &fakeSampler{}))
}
