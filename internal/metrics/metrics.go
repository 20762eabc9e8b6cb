// Package metrics provides Prometheus metrics for the conversion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	JobsSubmitted *prometheus.CounterVec
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsInFlight  prometheus.Gauge

	ChaptersSynthesized prometheus.Counter
	ChaptersDropped     prometheus.Counter

	SynthesisDuration prometheus.Histogram
	JobDuration       prometheus.Histogram

	ScanErrors    prometheus.Counter
	StorageErrors *prometheus.CounterVec

	StreamRequests *prometheus.CounterVec
}

// New builds a metrics set on its own registry so tests can construct
// as many instances as they need.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	const namespace = "bookcast"

	return &Metrics{
		registry: registry,
		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_submitted_total",
				Help:      "Total number of conversion jobs accepted",
			},
			[]string{"source"},
		),
		JobsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that wrote a manifest",
			},
		),
		JobsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_failed_total",
				Help:      "Total number of jobs that ended in failure",
			},
		),
		JobsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_flight",
				Help:      "Number of jobs currently being processed",
			},
		),
		ChaptersSynthesized: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chapters_synthesized_total",
				Help:      "Total number of chapters converted to audio",
			},
		),
		ChaptersDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chapters_dropped_total",
				Help:      "Total number of chapters dropped after synthesis or upload failures",
			},
		),
		SynthesisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synthesis_duration_seconds",
				Help:      "Time to synthesize one chapter",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		JobDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time from job start to terminal state",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		ScanErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_errors_total",
				Help:      "Total number of inbox scan failures",
			},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of object store errors",
			},
			[]string{"operation"},
		),
		StreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_requests_total",
				Help:      "Total number of chapter stream requests",
			},
			[]string{"status"},
		),
	}
}

// Handler returns the scrape endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
