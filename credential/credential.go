package credential

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the username.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned by Create when the username is taken.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("credential store unavailable")
)

// Record is one stored identity.
type Record struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Authorities  []string  `json:"authorities"`
	CreatedAt    time.Time `json:"created_at"`
}

// Lookup is the single capability the credential exchange needs.
type Lookup interface {
	Lookup(ctx context.Context, username string) (Record, error)
}

// Store adds registration and user management to Lookup.
type Store interface {
	Lookup
	Create(ctx context.Context, rec Record) error
	Delete(ctx context.Context, username string) error
	// UpdatePasswordHash replaces the stored hash of an existing user.
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	List(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
}

// NormalizeUsername returns the case-insensitive key of username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
