// Package telemetry groups deepreload's observability packages:
//
//   - logging: log/slog construction and context fields
//   - metrics: Prometheus reload metrics
//   - tracing: OpenTelemetry spans for reloads and unit loads
//   - health: liveness and readiness probes for the run command
package telemetry
