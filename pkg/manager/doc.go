// Package manager ties deepreload's pieces into one long-lived object.
//
// A Manager owns a host, its module table and a reloader, loads the
// configured roots, and reloads them when asked directly or when a
// trigger fires:
//
//   - Watch reloads the roots affected by file changes in the search paths
//   - Sync and StartGitPoll pull a git checkout and reload what the pull
//     changed, rolling the checkout back when the reload fails
//   - StartSchedule reloads every root and prunes history on cron schedules
//
// Every reload, whatever triggered it, runs under one lock, is recorded in
// the history store and updates the Prometheus collector.
//
// Basic usage:
//
//	m, err := manager.New(cfg, manager.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	if err := m.Load(ctx); err != nil {
//		return err
//	}
//	report, err := m.Reload(ctx, "app")
package manager
