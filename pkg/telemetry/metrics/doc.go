// Package metrics exports reload metrics to Prometheus.
//
// All metric names carry the configured namespace (default "deepreload"):
//
//	deepreload_reloads_total{status}
//	deepreload_reload_duration_seconds
//	deepreload_reload_units
//	deepreload_unit_loads_total{result}
//	deepreload_reentrancy_rejections_total
//	deepreload_units_loaded
//	deepreload_watch_events_total{op}
//	deepreload_git_syncs_total{status}
//
// When metrics are disabled every Record method is a no-op.
package metrics
