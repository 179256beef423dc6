// Package prometheus exposes portalAuth Manager metrics to Prometheus.
//
// Two forms are offered. [Collector] plugs into a client_golang registry
// and is what [NewRegistry] wires up for a /metrics endpoint.
// [PrometheusExporter] renders the same series as exposition text without
// a registry.
//
// Counters are named portalauth_*_total; the single histogram is
// portalauth_remote_latency_seconds.
package prometheus
