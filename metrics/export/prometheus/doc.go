// Package prometheus exposes the engine counters and the validation
// latency histogram as a client_golang Collector.
//
// Register an [Exporter] with the registry the process already serves, or
// mount [Exporter.Handler] on its own. Series are named goledger_*_total
// plus goledger_validate_latency_seconds.
package prometheus
