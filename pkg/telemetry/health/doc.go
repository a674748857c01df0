// Package health serves liveness and readiness probes for the run command.
//
// Readiness is degraded until the configured roots are loaded and while the
// most recent reload failed:
//
//	checker := health.New(time.Second)
//	checker.RegisterCheck("units", health.UnitsLoaded(table.Count, len(roots)))
//	checker.RegisterCheck("reload", health.LastReload(mgr.LastError))
//	health.Mount(mux, &cfg.Telemetry.Health, checker, version, commit, date)
package health
