// Package logging builds the log/slog logger used across deepreload.
//
// Components receive a *slog.Logger and tag it with
// logger.With("component", ...). The logger built by New also picks up
// fields carried in the context, so a reload started by the watcher logs
// with trigger=watch and its reload_id on every line written through the
// *Context methods:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	ctx = logging.WithTrigger(ctx, "watch")
//	logger.InfoContext(ctx, "files changed", "count", 3)
package logging
