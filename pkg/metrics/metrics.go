// Package metrics exposes Prometheus metrics for profiling sessions.
//
// # Overview
//
// Every session reports through a SessionCollector, which feeds the package
// level collectors below. The collectors are registered on the default
// registry, so Handler serves them without further setup.
//
// # Basic Usage
//
//	c := metrics.NewSessionCollector("csv")
//	c.Start()
//	c.ObserveChunk(len(chunk))
//	c.ObserveRecords(n)
//	c.Finish(metrics.OutcomeCompleted)
//
// # Metric Types
//
// Counter: sessions by outcome, bytes, records and data anomalies
// Gauge: active sessions and current record throughput
// Histogram: finalize latency
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

var (
	// Sessions counts finished sessions.
	// Labels: format (csv, json_array, jsonl, unknown), outcome (completed/cancelled/failed)
	Sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_sessions_total",
			Help: "Total number of profiling sessions by outcome",
		},
		[]string{"format", "outcome"},
	)

	// ActiveSessions tracks sessions between start and a terminal state.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prism_active_sessions",
			Help: "Number of profiling sessions in progress",
		},
	)

	// BytesProcessed counts input bytes pushed into sessions.
	BytesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_bytes_processed_total",
			Help: "Total number of input bytes processed",
		},
		[]string{"format"},
	)

	// RecordsProcessed counts reassembled records.
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_records_processed_total",
			Help: "Total number of records processed",
		},
		[]string{"format"},
	)

	// Anomalies counts per-record and per-field data anomalies.
	// Labels: kind (FIELD_COUNT_MISMATCH, UNSUPPORTED_TYPE_COERCION, malformed_record, duplicate_row)
	Anomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_anomalies_total",
			Help: "Total number of data anomalies counted by sessions",
		},
		[]string{"kind"},
	)

	// FinalizeLatency tracks the time spent materializing reports.
	FinalizeLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "prism_finalize_duration_seconds",
			Help: "Time spent finalizing a session into a report",
			Buckets: []float64{
				0.001, // 1ms - a few columns
				0.01,  // 10ms
				0.1,   // 100ms - hundreds of columns
				1,     // 1s
				10,    // 10s
			},
		},
	)

	// Throughput tracks records per second of the most recent session window.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prism_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"format"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation from creation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks records per second over time windows.
// Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Records since last reset
	lastReset time.Time // Time of last reset
	format    string
}

// NewThroughputTracker creates a tracker labelled with the input format.
func NewThroughputTracker(format string) *ThroughputTracker {
	return &ThroughputTracker{lastReset: time.Now(), format: format}
}

// Increment adds n to the record count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset computes the throughput since the last reset, publishes it and
// starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}
	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()
	Throughput.WithLabelValues(t.format).Set(throughput)
	return throughput
}

// SessionCollector records the metrics of one session. The format label is
// fixed once known; until then it is "unknown".
type SessionCollector struct {
	mu         sync.Mutex
	format     string
	started    bool
	finished   bool
	throughput *ThroughputTracker
}

// NewSessionCollector creates a collector. format may be empty.
func NewSessionCollector(format string) *SessionCollector {
	if format == "" {
		format = "unknown"
	}
	return &SessionCollector{format: format, throughput: NewThroughputTracker(format)}
}

// SetFormat relabels later observations.
func (c *SessionCollector) SetFormat(format string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = format
	c.throughput = NewThroughputTracker(format)
}

// Start marks the session active.
func (c *SessionCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	ActiveSessions.Inc()
}

// ObserveChunk counts pushed bytes.
func (c *SessionCollector) ObserveChunk(n int) {
	c.mu.Lock()
	format := c.format
	c.mu.Unlock()
	BytesProcessed.WithLabelValues(format).Add(float64(n))
}

// ObserveRecords counts reassembled records.
func (c *SessionCollector) ObserveRecords(n int64) {
	c.mu.Lock()
	format, tracker := c.format, c.throughput
	c.mu.Unlock()
	RecordsProcessed.WithLabelValues(format).Add(float64(n))
	tracker.Increment(n)
}

// ObserveAnomalies counts n anomalies of a kind.
func (c *SessionCollector) ObserveAnomalies(kind string, n int64) {
	if n <= 0 {
		return
	}
	Anomalies.WithLabelValues(kind).Add(float64(n))
}

// ObserveFinalize records report materialization latency.
func (c *SessionCollector) ObserveFinalize(d time.Duration) {
	FinalizeLatency.Observe(d.Seconds())
}

// Finish records the terminal outcome. Later calls are ignored.
func (c *SessionCollector) Finish(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.finished = true
	if c.started {
		ActiveSessions.Dec()
	}
	c.throughput.GetAndReset()
	Sessions.WithLabelValues(c.format, outcome).Inc()
}
