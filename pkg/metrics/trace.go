package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TraceMetrics tracks BufferedTraceWriter flush behavior. Nil-safe.
type TraceMetrics struct {
	flushDuration prometheus.Histogram
	batchSize     prometheus.Histogram
	dropped       prometheus.Counter
}

// NewTraceMetrics returns nil when metrics are disabled.
func NewTraceMetrics() *TraceMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &TraceMetrics{
		flushDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "hostlease_trace_flush_duration_seconds",
			Help:    "Time spent flushing a trace batch to its sink.",
			Buckets: prometheus.DefBuckets,
		}),
		batchSize: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "hostlease_trace_flush_batch_size",
			Help:    "Number of records in a flushed trace batch.",
			Buckets: prometheus.LinearBuckets(0, 25, 10),
		}),
		dropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hostlease_trace_dropped_total",
			Help: "Trace events discarded below the configured minimum level or as system traces.",
		}),
	}
}

func (m *TraceMetrics) ObserveFlush(durationSeconds float64, batchSize int) {
	if m == nil {
		return
	}
	m.flushDuration.Observe(durationSeconds)
	m.batchSize.Observe(float64(batchSize))
}

func (m *TraceMetrics) RecordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
