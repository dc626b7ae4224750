package ledger

import "time"

// TransactionType names a ledger event.
type TransactionType string

const (
	TypeCreateAccount TransactionType = "create_account"
	TypeAccountUpdate TransactionType = "account_update"
	TypeDeposit       TransactionType = "deposit"
	TypeWithdrawal    TransactionType = "withdrawal"
)

// TimestampLayout is fixed width so that lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000"

// Transaction is one immutable ledger entry.
type Transaction struct {
	Type      TransactionType `json:"type"`
	Timestamp string          `json:"ts"`
	// Balance is nil for account_update entries.
	Balance *int64 `json:"balance,omitempty"`
	// Amount is set for deposit and withdrawal entries only.
	Amount *int64 `json:"transactionAmt,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HasBalance reports whether the entry records a balance.
func (t Transaction) HasBalance() bool {
	return t.Balance != nil
}

// Time parses the entry timestamp.
func (t Transaction) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, t.Timestamp)
}

// FormatTimestamp renders ts in TimestampLayout.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

func int64Ptr(v int64) *int64 {
	return &v
}
