// Package observability provides OpenTelemetry tracing and metrics for
// statekit. InitTracer and InitMeter wire OTLP HTTP exporters; Metrics
// exposes the engine's instruments (instances created, queries executed,
// cache hits, subscription fan-out).
package observability
