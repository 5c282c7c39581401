// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// Counters are named apartments_*_total; the login latency histogram is
// apartments_login_latency_seconds. [Exporter.Handler] serves them from a
// private registry; register the Exporter yourself to merge it with other
// collectors.
package prometheus
