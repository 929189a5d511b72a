// Package metrics records per-run counters for a merge and can export them
// in the prometheus textfile format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry       *prometheus.Registry
	recordsFetched *prometheus.CounterVec
	objectsSkipped prometheus.Counter
	listPages      prometheus.Counter
	recordsWritten prometheus.Counter
	runDuration    prometheus.Histogram
	runFailures    prometheus.Counter
}

// New creates Metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logunifier_records_fetched_total",
			Help: "Records retrieved from each source.",
		}, []string{"source"}),
		objectsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logunifier_objects_skipped_total",
			Help: "Listed object keys skipped because they are not .json files.",
		}),
		listPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logunifier_list_pages_total",
			Help: "Object listing pages requested.",
		}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logunifier_records_written_total",
			Help: "Records written to the merged output.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logunifier_run_duration_seconds",
			Help:    "Wall time of a merge run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logunifier_run_failures_total",
			Help: "Merge runs that ended in an error.",
		}),
	}
	m.registry.MustRegister(
		m.recordsFetched, m.objectsSkipped, m.listPages,
		m.recordsWritten, m.runDuration, m.runFailures,
	)
	return m
}

func (m *Metrics) RecordsFetched(source string, n int) {
	if m == nil {
		return
	}
	m.recordsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObjectSkipped() {
	if m == nil {
		return
	}
	m.objectsSkipped.Inc()
}

func (m *Metrics) ListPage() {
	if m == nil {
		return
	}
	m.listPages.Inc()
}

func (m *Metrics) RecordsWritten(n int) {
	if m == nil {
		return
	}
	m.recordsWritten.Add(float64(n))
}

// RunFinished observes the run duration and counts failures.
func (m *Metrics) RunFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
	if err != nil {
		m.runFailures.Inc()
	}
}

// WriteTextfile writes all metrics to path for a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
