package benchmark

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Collector exposes a Registry as Prometheus metrics. Values are read at
// scrape time, so the hot path never touches Prometheus.
type Collector struct {
	reg *Registry

	ops     *prometheus.Desc
	written *prometheus.Desc
	deleted *prometheus.Desc
	logical *prometheus.Desc
}

// NewCollector creates a collector for reg, labelled with the run's backend and workload
func NewCollector(reg *Registry, backend, workload string) *Collector {
	labels := prometheus.Labels{"backend": backend, "workload": workload}
	return &Collector{
		reg: reg,
		ops: prometheus.NewDesc("storage_bench_operations_total",
			"Storage operations completed, by kind.", []string{"kind"}, labels),
		written: prometheus.NewDesc("storage_bench_written_bytes_total",
			"Logical bytes written (key plus value).", nil, labels),
		deleted: prometheus.NewDesc("storage_bench_deleted_bytes_total",
			"Logical bytes deleted, as hinted by the workload.", nil, labels),
		logical: prometheus.NewDesc("storage_bench_logical_size_bytes",
			"Live dataset size, written minus deleted bytes.", nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ops
	ch <- c.written
	ch <- c.deleted
	ch <- c.logical
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for kind := OpKind(0); kind < numOpKinds; kind++ {
		ch <- prometheus.MustNewConstMetric(c.ops, prometheus.CounterValue, float64(c.reg.Ops(kind)), kind.String())
	}
	ch <- prometheus.MustNewConstMetric(c.written, prometheus.CounterValue, float64(c.reg.WrittenBytes()))
	ch <- prometheus.MustNewConstMetric(c.deleted, prometheus.CounterValue, float64(c.reg.DeletedBytes()))
	ch <- prometheus.MustNewConstMetric(c.logical, prometheus.GaugeValue, float64(c.reg.LogicalSize()))
}

// MetricsServer serves /metrics for one run
type MetricsServer struct {
	srv *http.Server
}

// StartMetricsServer registers collector on a fresh registry (plus the Go
// and process collectors) and serves it on addr in the background
func StartMetricsServer(addr string, collector prometheus.Collector) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, err
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	return &MetricsServer{srv: srv}, nil
}

// Shutdown stops the server, waiting up to a second for in-flight scrapes
func (s *MetricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
