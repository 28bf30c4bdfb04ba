// Package metrics counts what a run did. The command line tools are short
// lived, so metrics are exported as a node_exporter textfile at the end of a
// run instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lodstats"

// Dataset outcomes.
const (
	DatasetProcessed = "processed"
	DatasetSkipped   = "skipped"
	DatasetFailed    = "failed"
)

// File outcomes.
const (
	FileUsed   = "used"
	FileFailed = "failed"
	FileUnused = "unused"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	datasets   *prometheus.CounterVec
	files      *prometheus.CounterVec
	extraction *prometheus.HistogramVec
	runSeconds prometheus.Gauge
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		datasets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_total",
			Help:      "Datasets handled by outcome",
		}, []string{"outcome"}),

		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Dataset files by outcome and extraction strategy",
		}, []string{"outcome", "strategy"}),

		extraction: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_extraction_seconds",
			Help:      "Time spent extracting statistics from one file",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"strategy"}),

		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}

	for _, c := range []prometheus.Collector{m.datasets, m.files, m.extraction, m.runSeconds} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) Dataset(outcome string) {
	if m == nil {
		return
	}
	m.datasets.WithLabelValues(outcome).Inc()
}

func (m *Metrics) File(outcome string, strategy string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome, strategy).Inc()
}

func (m *Metrics) Extraction(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.extraction.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) Run(d time.Duration) {
	if m == nil {
		return
	}
	m.runSeconds.Set(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
