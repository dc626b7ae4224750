// Package stores provides the persistence backends of the ledger.
//
// # Backends
//
//   - [MemoryAccounts] keeps accounts in a map guarded by a RWMutex. Every
//     call is serialized; values are copied in and out.
//   - [PostgresAccounts] stores one row per account with the transaction log
//     in a JSONB column, so an account and its history are written and
//     deleted by a single statement.
//
// [Migrate] applies the embedded SQL migrations with golang-migrate.
//
// # Architecture boundaries
//
// This package implements ledger.Store. It does NOT validate inputs or
// compute balances; the ledger Service does that before calling in.
//
// # What this package must NOT do
//
//   - Import goLedger or any sibling internal package.
//   - Hold a lock across calls.
package stores
