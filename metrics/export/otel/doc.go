// Package otel publishes engine metrics through an OpenTelemetry meter.
//
// [NewExporter] registers one observable counter per engine counter and a
// pair of gauges for the validation latency histogram: goledger_*_bucket
// carries a point per bound (attribute le) and goledger_*_count the total.
// The caller owns the MeterProvider.
package otel
