// Package metrics defines the sinks that record planning activity. Every sink
// records scheduling passes; sinks may additionally implement the optional
// recorder interfaces for per-target assignments, diagnostics and state
// transitions. NewMetricsSink builds sinks from configuration and returns a
// MultiSink automatically when several are configured. Concrete sinks for
// Prometheus and InfluxDB live in infra/metrics.
package metrics
