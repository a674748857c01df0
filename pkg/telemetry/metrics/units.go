package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/deepreload/pkg/config"
)

// UnitMetrics tracks individual unit loads and the module table size.
type UnitMetrics struct {
	loadsTotal *prometheus.CounterVec
	loaded     prometheus.Gauge
}

// NewUnitMetrics creates and registers unit metrics with registry.
func NewUnitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UnitMetrics {
	um := &UnitMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "unit_loads_total",
				Help:      "Total number of unit loads attempted during reloads",
			},
			[]string{"result"},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "units_loaded",
				Help:      "Number of units registered in the module table",
			},
		),
	}

	registry.MustRegister(um.loadsTotal, um.loaded)
	return um
}

// RecordLoads adds n loads with result.
func (um *UnitMetrics) RecordLoads(result string, n int) {
	if n > 0 {
		um.loadsTotal.WithLabelValues(result).Add(float64(n))
	}
}

// SetLoaded sets the module table size.
func (um *UnitMetrics) SetLoaded(n int) {
	um.loaded.Set(float64(n))
}
