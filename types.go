package goLedger

import (
	"time"

	"github.com/MrEthical07/goLedger/credential"
)

// CredentialStore is the user backend the Engine consults and writes to.
// Implementations live in the credential package.
type CredentialStore = credential.Store

// AuthResult is the verified view of a bearer token.
type AuthResult struct {
	Subject   string
	Scopes    []string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasScope reports whether scope is among the token's authorities.
func (r *AuthResult) HasScope(scope string) bool {
	if r == nil {
		return false
	}
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TokenResult is returned by a successful credential exchange.
type TokenResult struct {
	Token     string    `json:"token"`
	Subject   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// SignUpRequest mirrors the registration body.
type SignUpRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	MatchingPassword string `json:"matchingPassword"`
}

// SignUpResult mirrors the registration response body.
type SignUpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserInfo is the public projection of a stored user. Hashes never leave
// the engine.
type UserInfo struct {
	Username    string    `json:"username"`
	Authorities []string  `json:"authorities,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// SeedUser is a user created at startup when the credential store is empty.
type SeedUser struct {
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Authorities []string `yaml:"authorities"`
}

// DefaultSeedUsers are created when no seed file is configured.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{Username: "user1@example.com", Password: "user1password", Authorities: []string{"USER"}},
		{Username: "user2@example.com", Password: "user2password", Authorities: []string{"USER"}},
	}
}
