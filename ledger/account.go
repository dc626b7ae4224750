package ledger

import "time"

// Account is a ledger account. Balance always equals Transactions.LatestBalance().
type Account struct {
	Number       int64     `json:"accountNumber"`
	HolderName   string    `json:"accountHolderName"`
	Balance      int64     `json:"accountBalance"`
	StartDate    time.Time `json:"accountStartDate"`
	Branch       string    `json:"accountBranch"`
	Transactions Log       `json:"accountTransactions"`

	CreatedBy  string    `json:"-"`
	CreatedAt  time.Time `json:"-"`
	ModifiedBy string    `json:"-"`
	ModifiedAt time.Time `json:"-"`
}

// withLog sets the log and re-derives the cached balance from it.
func (a Account) withLog(log Log) Account {
	a.Transactions = log
	a.Balance = log.LatestBalance()
	return a
}

func (a Account) touched(actor string, at time.Time) Account {
	a.ModifiedBy = actor
	a.ModifiedAt = at
	return a
}
