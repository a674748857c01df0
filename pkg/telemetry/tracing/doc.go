// Package tracing sets up OpenTelemetry tracing for reloads.
//
// Every Reload call produces a "reload" span with one "unit.load" child per
// unit the reload reached. When tracing is enabled spans are exported over
// OTLP/gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// New registers the provider globally, so the reload package, which asks
// otel for its tracer, needs no explicit wiring.
package tracing
