package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/deepreload/pkg/config"
)

// Reload statuses.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusRejected = "rejected"
)

// Unit load results.
const (
	ResultExecuted = "executed"
	ResultNotFound = "not_found"
)

// Collector owns every Prometheus metric deepreload exports. All metrics
// live in a private registry so several collectors can coexist in tests.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	reload *ReloadMetrics
	units  *UnitMetrics
	source *SourceMetrics
}

// NewCollector creates a collector and registers its metrics with
// registry. A nil registry gets a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.DurationBuckets) == 0 {
		c.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:   &c,
		registry: registry,
		reload:   NewReloadMetrics(&c, registry),
		units:    NewUnitMetrics(&c, registry),
		source:   NewSourceMetrics(&c, registry),
	}
}

// RecordReload records a finished reload call.
func (c *Collector) RecordReload(status string, duration time.Duration, reloaded, missing int) {
	if !c.config.Enabled {
		return
	}
	c.reload.Record(status, duration, reloaded)
	c.units.RecordLoads(ResultExecuted, reloaded)
	c.units.RecordLoads(ResultNotFound, missing)
}

// RecordReentrancyRejection records a reload refused because another one
// was still running.
func (c *Collector) RecordReentrancyRejection() {
	if !c.config.Enabled {
		return
	}
	c.reload.RecordRejection()
}

// SetUnitsLoaded sets the number of units in the module table.
func (c *Collector) SetUnitsLoaded(n int) {
	if !c.config.Enabled {
		return
	}
	c.units.SetLoaded(n)
}

// RecordWatchEvent records a file system event seen by the watcher.
func (c *Collector) RecordWatchEvent(op string) {
	if !c.config.Enabled {
		return
	}
	c.source.RecordWatchEvent(op)
}

// RecordGitSync records a git sync attempt.
func (c *Collector) RecordGitSync(status string) {
	if !c.config.Enabled {
		return
	}
	c.source.RecordGitSync(status)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
