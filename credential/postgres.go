package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type credentialRow struct {
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Authorities  string    `db:"authorities"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r credentialRow) record() Record {
	return Record{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Authorities:  strings.Fields(r.Authorities),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// PostgresStore is a Store backed by the credentials table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, username string) (Record, error) {
	var row credentialRow
	err := s.db.GetContext(ctx, &row,
		`SELECT username, password_hash, authorities, created_at FROM credentials WHERE username_key = $1`,
		NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return row.record(), nil
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (username_key, username, password_hash, authorities, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username_key) DO NOTHING`,
		NormalizeUsername(rec.Username), rec.Username, rec.PasswordHash, strings.Join(rec.Authorities, " "), createdAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE username_key = $1`, NormalizeUsername(username))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE credentials SET password_hash = $1 WHERE username_key = $2`, hash, NormalizeUsername(username))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	var rows []credentialRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT username, password_hash, authorities, created_at FROM credentials ORDER BY username_key`); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM credentials`); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
