package telemetry

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_rows_extracted_total",
			Help: "The total number of rows pulled from the source",
		},
		[]string{"stream"},
	)
	RecordsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_records_emitted_total",
			Help: "The total number of records delivered to sinks",
		},
		[]string{"status", "stream"},
	)
	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extractor_batch_size",
			Help:    "Distribution of flushed batch sizes",
			Buckets: []float64{10, 100, 500, 1000, 5000, 10000},
		},
		[]string{"stream"},
	)
	SinkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "extractor_sink_latency_seconds",
			Help: "Latency of sink flushes",
		},
		[]string{"stream"},
	)
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extractor_sync_duration_seconds",
			Help:    "Wall time of one table sync",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		},
		[]string{"stream"},
	)
)

func Init(addr string) {
	// Metrics
	prometheus.MustRegister(RowsExtracted)
	prometheus.MustRegister(RecordsEmitted)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(SinkLatency)
	prometheus.MustRegister(SyncDuration)

	// Logger: structured output goes to stderr because stdout carries the
	// extracted message stream.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		slog.Info("Starting telemetry server", "address", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			slog.Error("Telemetry server failed", "error", err)
		}
	}()
}
