// Package otel publishes chatgate engine metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// Counters become Int64ObservableCounter instruments with the same names the
// Prometheus exporter uses. The validate latency histogram is published as one
// cumulative gauge per bucket and a count gauge.
package otel
