// Package metrics provides the Prometheus and InfluxDB metrics sinks, the
// event bus collector and the Prometheus HTTP endpoint. Importing the package
// registers the "nop", "prometheus" and "influx" sink types.
package metrics
