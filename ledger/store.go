package ledger

import "context"

// Store persists accounts keyed by account number. Implementations return
// ErrAccountNotFound for unknown numbers and ErrAccountExists from Create on a
// number collision. Delete removes the account together with its log.
type Store interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, number int64) (Account, error)
	Save(ctx context.Context, acct Account) error
	Delete(ctx context.Context, number int64) error
	List(ctx context.Context) ([]Account, error)
}
