// Package ledger owns account balances and their transaction history.
//
// Every account carries an append-only [Log]. The balance of an account is
// never maintained as an independent counter: it is the balance recorded by
// the newest balance-bearing entry of the log, or 0 when there is none.
// [Account.Balance] is a cache of [Log.LatestBalance] and both are written
// together before the account is persisted.
//
// # Components
//
//   - [Events] builds the typed entries (create_account, account_update,
//     deposit, withdrawal). It performs no validation.
//   - [Service] validates inputs, loads the account from a [Store], applies
//     one event and saves the result.
//
// # Concurrency
//
// Each Service call is a single read-modify-write against the Store. There is
// no cross-call locking, so two concurrent mutations of one account may race
// and the later save wins.
//
// # What this package must NOT do
//
//   - Know about HTTP, tokens or credentials.
//   - Mutate a Log in place. Append always returns a new Log.
package ledger
