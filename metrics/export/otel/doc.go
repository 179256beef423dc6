// Package otel exports portalAuth Manager metrics through an OpenTelemetry
// meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per Manager
// counter and, for the remote latency histogram, a bucket gauge keyed by
// the "le" attribute plus a count gauge. A single callback reads
// [portalAuth.Manager.MetricsSnapshot] on each collection.
//
// The caller owns the MeterProvider.
package otel
