package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/deepreload/pkg/config"
)

// SourceMetrics tracks the triggers that feed reloads: file system events
// and git syncs.
type SourceMetrics struct {
	watchEvents *prometheus.CounterVec
	gitSyncs    *prometheus.CounterVec
}

// NewSourceMetrics creates and registers source metrics with registry.
func NewSourceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SourceMetrics {
	sm := &SourceMetrics{
		watchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "watch_events_total",
				Help:      "Total number of file system events seen by the watcher",
			},
			[]string{"op"},
		),

		gitSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "git_syncs_total",
				Help:      "Total number of git sync attempts",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(sm.watchEvents, sm.gitSyncs)
	return sm
}

// RecordWatchEvent counts one watch event.
func (sm *SourceMetrics) RecordWatchEvent(op string) {
	sm.watchEvents.WithLabelValues(op).Inc()
}

// RecordGitSync counts one git sync.
func (sm *SourceMetrics) RecordGitSync(status string) {
	sm.gitSyncs.WithLabelValues(status).Inc()
}
