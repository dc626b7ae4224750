package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/goLedger/ledger"
	"github.com/jmoiron/sqlx"
)

var rowColumns = []string{
	"account_number", "holder_name", "branch", "balance", "start_date", "transactions",
	"created_by", "created_at", "modified_by", "modified_at",
}

func newMockStore(t *testing.T) (*PostgresAccounts, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresAccounts(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresCreateDetectsCollision(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	acct := ledger.Account{Number: 12345, HolderName: "Alice", Branch: "NYC", StartDate: time.Now()}

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(int64(12345), "Alice", "NYC", int64(0), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Create(ctx, acct); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, acct); !errors.Is(err, ledger.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresGetDecodesTransactions(t *testing.T) {
	store, mock := newMockStore(t)
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	txs := `[{"type":"create_account","ts":"2024-01-02T03:04:05.000000000","balance":0},` +
		`{"type":"deposit","ts":"2024-01-02T03:05:00.000000000","balance":100,"transactionAmt":100}]`

	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE account_number = \$1`).
		WithArgs(int64(12345)).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow(int64(12345), "Alice", "NYC", int64(100), start, []byte(txs), "svc", start, "", nil))

	acct, err := store.Get(context.Background(), 12345)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Transactions.Len() != 2 || acct.Transactions.LatestBalance() != 100 {
		t.Fatalf("unexpected log %+v", acct.Transactions.Entries())
	}
	if acct.HolderName != "Alice" || acct.CreatedBy != "svc" || !acct.ModifiedAt.IsZero() {
		t.Fatalf("unexpected account %+v", acct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresGetMissingAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE account_number = \$1`).
		WithArgs(int64(99999)).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	if _, err := store.Get(context.Background(), 99999); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPostgresSaveAndDeleteRequireRow(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	acct := ledger.Account{Number: 12345, HolderName: "Alice", Branch: "SF", ModifiedBy: "alice", ModifiedAt: time.Now()}

	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM accounts").WithArgs(int64(12345)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM accounts").WithArgs(int64(12345)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, acct); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound on save, got %v", err)
	}
	if err := store.Delete(ctx, 12345); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, 12345); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound on delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresListOrdersByNumber(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM accounts ORDER BY account_number`).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow(int64(10001), "Alice", "NYC", int64(0), now, []byte(`[]`), "", now, "", nil).
			AddRow(int64(20002), "Bob", "LA", int64(5), now, []byte(`[]`), "", now, "bob", now))

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Number != 10001 || list[1].ModifiedBy != "bob" {
		t.Fatalf("unexpected list %+v", list)
	}
}
