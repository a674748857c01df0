package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/deepreload/pkg/config"
)

// ReloadMetrics tracks reload calls.
//
// Metrics:
//   - deepreload_reloads_total: Reload calls by status
//   - deepreload_reload_duration_seconds: Reload call duration
//   - deepreload_reload_units: Units executed per reload call
//   - deepreload_reentrancy_rejections_total: Nested reloads refused
type ReloadMetrics struct {
	reloadsTotal        *prometheus.CounterVec
	duration            prometheus.Histogram
	units               prometheus.Histogram
	reentrantRejections prometheus.Counter
}

// NewReloadMetrics creates and registers reload metrics with registry.
func NewReloadMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReloadMetrics {
	rm := &ReloadMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reloads_total",
				Help:      "Total number of reload calls",
			},
			[]string{"status"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "reload_duration_seconds",
				Help:      "Duration of reload calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		units: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "reload_units",
				Help:      "Number of units executed by a reload call",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
			},
		),

		reentrantRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reentrancy_rejections_total",
				Help:      "Total number of nested reload calls rejected",
			},
		),
	}

	registry.MustRegister(
		rm.reloadsTotal,
		rm.duration,
		rm.units,
		rm.reentrantRejections,
	)
	return rm
}

// Record records one reload call.
func (rm *ReloadMetrics) Record(status string, duration time.Duration, reloaded int) {
	rm.reloadsTotal.WithLabelValues(status).Inc()
	rm.duration.Observe(duration.Seconds())
	if status == StatusSuccess {
		rm.units.Observe(float64(reloaded))
	}
}

// RecordRejection counts a rejected nested reload.
func (rm *ReloadMetrics) RecordRejection() {
	rm.reloadsTotal.WithLabelValues(StatusRejected).Inc()
	rm.reentrantRejections.Inc()
}
