package benchmark

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := NewRegistry()
	reg.record(OpWrite, time.Microsecond)
	reg.record(OpWrite, time.Microsecond)
	reg.record(OpRange, time.Microsecond)
	reg.addWritten(100)
	reg.addDeleted(40)

	c := NewCollector(reg, "memory", "task-a")

	// four op kinds plus written, deleted and logical size
	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP storage_bench_operations_total Storage operations completed, by kind.
# TYPE storage_bench_operations_total counter
storage_bench_operations_total{backend="memory",kind="delete",workload="task-a"} 0
storage_bench_operations_total{backend="memory",kind="point_read",workload="task-a"} 0
storage_bench_operations_total{backend="memory",kind="range",workload="task-a"} 1
storage_bench_operations_total{backend="memory",kind="write",workload="task-a"} 2
# HELP storage_bench_logical_size_bytes Live dataset size, written minus deleted bytes.
# TYPE storage_bench_logical_size_bytes gauge
storage_bench_logical_size_bytes{backend="memory",workload="task-a"} 60
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"storage_bench_operations_total", "storage_bench_logical_size_bytes"))
}

func TestMetricsServer(t *testing.T) {
	srv, err := StartMetricsServer("127.0.0.1:0", NewCollector(NewRegistry(), "memory", "feed"))
	require.NoError(t, err)
	require.NoError(t, srv.Shutdown())
}
