package ledger

import "time"

// Events builds ledger entries stamped with the current instant. It assumes
// the caller already validated inputs and checked that the account exists.
type Events struct {
	now func() time.Time
}

// NewEvents returns a builder reading time from now, or time.Now when nil.
func NewEvents(now func() time.Time) Events {
	if now == nil {
		now = time.Now
	}
	return Events{now: now}
}

// stamp returns the current instant, moved forward when needed so the new
// entry sorts strictly after every entry already in log.
func (e Events) stamp(log Log) string {
	now := e.now().UTC()
	latest, ok := log.Latest()
	if !ok {
		return FormatTimestamp(now)
	}
	if ts := FormatTimestamp(now); ts > latest.Timestamp {
		return ts
	}
	prev, err := latest.Time()
	if err != nil {
		return FormatTimestamp(now)
	}
	return FormatTimestamp(prev.Add(time.Nanosecond))
}

// AccountCreated starts a new log with a create_account entry at balance 0.
func (e Events) AccountCreated() Log {
	return NewLog(Transaction{
		Type:      TypeCreateAccount,
		Timestamp: e.stamp(Log{}),
		Balance:   int64Ptr(0),
	})
}

// AccountUpdated appends an account_update entry carrying no balance.
func (e Events) AccountUpdated(log Log) Log {
	return log.Append(Transaction{
		Type:      TypeAccountUpdate,
		Timestamp: e.stamp(log),
	})
}

// Deposited appends a deposit entry whose balance is the current balance plus amount.
func (e Events) Deposited(log Log, amount int64) Log {
	return log.Append(Transaction{
		Type:      TypeDeposit,
		Timestamp: e.stamp(log),
		Amount:    int64Ptr(amount),
		Balance:   int64Ptr(log.LatestBalance() + amount),
	})
}

// Withdrawn appends a withdrawal entry whose balance is the current balance minus amount.
func (e Events) Withdrawn(log Log, amount int64) Log {
	return log.Append(Transaction{
		Type:      TypeWithdrawal,
		Timestamp: e.stamp(log),
		Amount:    int64Ptr(amount),
		Balance:   int64Ptr(log.LatestBalance() - amount),
	})
}
