// Package metrics exposes Prometheus collectors for the reference pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	referencesTotal      *prometheus.CounterVec
	renderAttemptsTotal  *prometheus.CounterVec
	blockedTotal         *prometheus.CounterVec
	batchDurationSeconds prometheus.Histogram
	archiveBytes         prometheus.Histogram
	activeWorkers        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times; the Observe helpers are no-ops until it runs.
func Init() {
	once.Do(func() {
		referencesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refbundle_references_total",
				Help: "Total references processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		renderAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refbundle_render_attempts_total",
				Help: "Total render attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		blockedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refbundle_blocked_total",
				Help: "Total blocker detections, labeled by reason.",
			},
			[]string{"reason"},
		)

		batchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "refbundle_batch_duration_seconds",
				Help:    "Histogram of end-to-end batch durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		archiveBytes = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "refbundle_archive_bytes",
				Help:    "Histogram of assembled archive sizes in bytes.",
				Buckets: prometheus.ExponentialBuckets(1<<16, 4, 8),
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "refbundle_active_workers",
				Help: "Number of workers currently processing a reference.",
			},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveReference increments the per-status reference counter.
func ObserveReference(status string) {
	if referencesTotal == nil {
		return
	}
	referencesTotal.WithLabelValues(status).Inc()
}

// ObserveRenderAttempt increments the per-outcome render attempt counter.
func ObserveRenderAttempt(outcome string) {
	if renderAttemptsTotal == nil {
		return
	}
	renderAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBlocked increments the blocker detection counter.
func ObserveBlocked(reason string) {
	if blockedTotal == nil {
		return
	}
	blockedTotal.WithLabelValues(reason).Inc()
}

// ObserveBatchDuration records one complete batch run.
func ObserveBatchDuration(d time.Duration) {
	if batchDurationSeconds == nil {
		return
	}
	batchDurationSeconds.Observe(d.Seconds())
}

// ObserveArchiveSize records the size of one assembled archive.
func ObserveArchiveSize(n int) {
	if archiveBytes == nil {
		return
	}
	archiveBytes.Observe(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
