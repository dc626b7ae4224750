// Package audit implements async event dispatching for credential and ledger operations.
//
// # Components
//
//   - [Sink]: event consumers (channel, JSON writer, zerolog, Kafka, fan-out, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one structured audit record.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That belongs to the Engine and the ledger Service.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goLedger or any sibling internal package.
//   - Perform network I/O beyond what a Sink does.
package audit
