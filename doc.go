// Package goLedger is the authentication core of the ledger service: it
// exchanges usernames and passwords for signed bearer tokens, validates those
// tokens, and manages the users that may hold them.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goLedger is the public surface for identity. It exposes [Engine], [Builder], [Config],
// and value types. Account balances and transaction history live in package ledger and
// never import this package; the HTTP gate in package middleware joins the two.
//
// # What this package must NOT do
//
//   - Reveal whether a failed exchange was an unknown user or a wrong password.
//   - Keep server-side sessions. Every request is authenticated by its token alone.
//   - Return password hashes from any exported method.
//
// # Performance contract
//
// Validate is the hot path. It is a pure signature and expiry check over key material
// loaded once by Build and performs no I/O. IssueToken costs one credential lookup,
// one password hash comparison, and at most two Redis round-trips when throttling is on.
package goLedger
