package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quote_collector"

// File kinds for FilesWritten.
const (
	KindDirect = "direct"
	KindStaged = "staged"
	KindDaily  = "daily"
)

var (
	// FramesDropped counts websocket frames discarded because the client's
	// message channel was full.
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_dropped_total",
			Help:      "Total websocket frames dropped on a full message buffer",
		},
		[]string{"exchange"},
	)

	// TicksAppended counts quote ticks appended to the buffer.
	TicksAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "ticks_appended_total",
			Help:      "Total quote ticks appended to the buffer",
		},
		[]string{"exchange", "market"},
	)

	// BufferedRows is the row count drained per pair by the last flush.
	BufferedRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "drained_rows",
			Help:      "Rows drained per pair by the last flush",
		},
		[]string{"exchange", "market"},
	)

	// RowsWritten counts rows handed to a sink.
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rows_written_total",
			Help:      "Total rows written",
		},
		[]string{"policy"},
	)

	// FilesWritten counts files published by the file writers.
	FilesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "files_written_total",
			Help:      "Total files written",
		},
		[]string{"kind"},
	)

	// Merges counts daily rollovers.
	Merges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "daily_merges_total",
			Help:      "Total staged-to-daily merges",
		},
	)

	// WriteErrors counts failed writes.
	WriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "errors_total",
			Help:      "Total failed writes",
		},
		[]string{"policy"},
	)

	// FlushDuration observes the wall time of each flush.
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "flush_duration_seconds",
			Help:      "Duration of flushes",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// LastFlush is the unix time of the last completed flush.
	LastFlush = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_flush_timestamp_seconds",
			Help:      "Unix time of the last completed flush",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
