package ledger

import (
	"encoding/json"
	"sort"
)

// Log is the append-only transaction history of one account. The zero value
// is an empty log. Values are immutable: Append returns a new Log and never
// touches the receiver's backing array.
type Log struct {
	entries []Transaction
}

// NewLog builds a log from entries in insertion order.
func NewLog(entries ...Transaction) Log {
	if len(entries) == 0 {
		return Log{}
	}
	out := make([]Transaction, len(entries))
	copy(out, entries)
	return Log{entries: out}
}

// Len returns the number of entries.
func (l Log) Len() int {
	return len(l.entries)
}

// Append returns a new log with tx added after the existing entries.
func (l Log) Append(tx Transaction) Log {
	out := make([]Transaction, len(l.entries), len(l.entries)+1)
	copy(out, l.entries)
	return Log{entries: append(out, tx)}
}

// Entries returns a copy of the entries ordered ascending by timestamp.
// Entries with equal timestamps keep insertion order.
func (l Log) Entries() []Transaction {
	out := make([]Transaction, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Latest returns the most recently timestamped entry.
func (l Log) Latest() (Transaction, bool) {
	type acc struct {
		tx    Transaction
		found bool
	}
	res := foldLog(l, acc{}, func(a acc, tx Transaction) acc {
		if !a.found || tx.Timestamp >= a.tx.Timestamp {
			return acc{tx: tx, found: true}
		}
		return a
	})
	return res.tx, res.found
}

// LatestTimestamp returns the newest timestamp in the log, or "".
func (l Log) LatestTimestamp() string {
	return foldLog(l, "", func(newest string, tx Transaction) string {
		if tx.Timestamp > newest {
			return tx.Timestamp
		}
		return newest
	})
}

// LatestBalance returns the balance of the most recently timestamped
// balance-bearing entry, or 0 when no entry carries a balance.
func (l Log) LatestBalance() int64 {
	type acc struct {
		ts      string
		balance int64
		found   bool
	}
	res := foldLog(l, acc{}, func(a acc, tx Transaction) acc {
		if !tx.HasBalance() {
			return a
		}
		if !a.found || tx.Timestamp >= a.ts {
			return acc{ts: tx.Timestamp, balance: *tx.Balance, found: true}
		}
		return a
	})
	return res.balance
}

func foldLog[T any](l Log, init T, fn func(T, Transaction) T) T {
	acc := init
	for _, tx := range l.entries {
		acc = fn(acc, tx)
	}
	return acc
}

// MarshalJSON renders the entries in chronological order.
func (l Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}

// UnmarshalJSON replaces the receiver with the decoded entries.
func (l *Log) UnmarshalJSON(data []byte) error {
	var entries []Transaction
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*l = NewLog(entries...)
	return nil
}
