// Package otel publishes engine metrics through an OpenTelemetry meter.
//
// Every engine counter becomes an Int64ObservableCounter and the login
// latency histogram becomes one cumulative gauge per bucket. The caller owns
// the MeterProvider.
package otel
