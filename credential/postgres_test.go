package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresLookupNormalizesUsername(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT username, password_hash, authorities, created_at FROM credentials WHERE username_key = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "authorities", "created_at"}).
			AddRow("Alice@Example.com", "hash", "USER AUDITOR", now))
	mock.ExpectQuery(`FROM credentials WHERE username_key = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "authorities", "created_at"}))

	rec, err := s.Lookup(context.Background(), "  ALICE@example.com ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Username != "Alice@Example.com" || len(rec.Authorities) != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := s.Lookup(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCreateAndDelete(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO credentials").
		WithArgs("bob", "Bob", "hash", "USER", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM credentials").WithArgs("bob").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM credentials").WithArgs("bob").WillReturnResult(sqlmock.NewResult(0, 0))

	rec := Record{Username: "Bob", PasswordHash: "hash", Authorities: []string{"USER"}}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, rec); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := s.Delete(ctx, "BOB"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCount(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("expected 3, got %d %v", n, err)
	}
}

func TestPostgresUpdatePasswordHash(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`UPDATE credentials SET password_hash = \$1 WHERE username_key = \$2`).
		WithArgs("newhash", "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs("newhash", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.UpdatePasswordHash(context.Background(), "Bob", "newhash"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdatePasswordHash(context.Background(), "ghost", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
