package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goLedger/ledger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const accountColumns = "account_number, holder_name, branch, balance, start_date, transactions, " +
	"created_by, created_at, modified_by, modified_at"

type accountRow struct {
	Number       int64        `db:"account_number"`
	HolderName   string       `db:"holder_name"`
	Branch       string       `db:"branch"`
	Balance      int64        `db:"balance"`
	StartDate    time.Time    `db:"start_date"`
	Transactions []byte       `db:"transactions"`
	CreatedBy    string       `db:"created_by"`
	CreatedAt    time.Time    `db:"created_at"`
	ModifiedBy   string       `db:"modified_by"`
	ModifiedAt   sql.NullTime `db:"modified_at"`
}

func (r accountRow) account() (ledger.Account, error) {
	var log ledger.Log
	if len(r.Transactions) > 0 {
		if err := json.Unmarshal(r.Transactions, &log); err != nil {
			return ledger.Account{}, fmt.Errorf("decode transactions of account %d: %w", r.Number, err)
		}
	}
	acct := ledger.Account{
		Number:       r.Number,
		HolderName:   r.HolderName,
		Branch:       r.Branch,
		Balance:      r.Balance,
		StartDate:    r.StartDate.UTC(),
		Transactions: log,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt.UTC(),
		ModifiedBy:   r.ModifiedBy,
	}
	if r.ModifiedAt.Valid {
		acct.ModifiedAt = r.ModifiedAt.Time.UTC()
	}
	return acct, nil
}

// PostgresAccounts is a ledger.Store backed by the accounts table.
type PostgresAccounts struct {
	db *sqlx.DB
}

func NewPostgresAccounts(db *sqlx.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (s *PostgresAccounts) Create(ctx context.Context, acct ledger.Account) error {
	txs, err := json.Marshal(acct.Transactions)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_number) DO NOTHING`,
		acct.Number, acct.HolderName, acct.Branch, acct.Balance, acct.StartDate, txs,
		acct.CreatedBy, acct.CreatedAt, acct.ModifiedBy, nullTime(acct.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return requireRow(res, ledger.ErrAccountExists)
}

func (s *PostgresAccounts) Get(ctx context.Context, number int64) (ledger.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("select account: %w", err)
	}
	return row.account()
}

func (s *PostgresAccounts) Save(ctx context.Context, acct ledger.Account) error {
	txs, err := json.Marshal(acct.Transactions)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE accounts
		SET holder_name = $2, branch = $3, balance = $4, transactions = $5, modified_by = $6, modified_at = $7
		WHERE account_number = $1`,
		acct.Number, acct.HolderName, acct.Branch, acct.Balance, txs, acct.ModifiedBy, nullTime(acct.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res, ledger.ErrAccountNotFound)
}

func (s *PostgresAccounts) Delete(ctx context.Context, number int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_number = $1`, number)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res, ledger.ErrAccountNotFound)
}

func (s *PostgresAccounts) List(ctx context.Context) ([]ledger.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+accountColumns+` FROM accounts ORDER BY account_number`); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	out := make([]ledger.Account, 0, len(rows))
	for _, row := range rows {
		acct, err := row.account()
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

func requireRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
