// Package prometheus renders chatgate engine metrics in the Prometheus text
// exposition format.
//
// [NewExporter] takes a [Source], normally a *chatgate.Engine, and
// [Exporter.Handler] serves every counter as chatgate_*_total plus the
// chatgate_validate_latency_seconds histogram. Nothing is registered in a
// global registry; callers mount the handler themselves.
package prometheus
