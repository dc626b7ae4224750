// Package credential stores user identities and password hashes for the
// credential exchange.
//
// Usernames are unique case-insensitively: every backend keys records by
// [NormalizeUsername] while keeping the username as it was registered.
//
// # Backends
//
//   - [MemoryStore] for tests and single-process deployments.
//   - [RedisStore] keeps one JSON value per user plus an index set.
//   - [PostgresStore] uses the credentials table created by the ledger migrations.
//
// # What this package must NOT do
//
//   - Hash or compare passwords. Records carry hashes produced elsewhere.
//   - Import goLedger or any of its internal packages.
package credential
