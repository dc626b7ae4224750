// Package jwt issues and verifies the bearer tokens returned by the credential
// exchange.
//
// A [Manager] is built once from immutable key material and then shared by all
// request goroutines. [Manager.Issue] stamps issuer, issued-at, expiry, subject
// and the space-joined scope claim and signs with the private key.
// [Manager.Verify] checks the signature against the public key and rejects the
// token at or after its expiry instant.
//
// Supported algorithms are EdDSA (ed25519) and RS256. Keys are accepted as raw
// ed25519 bytes or PEM.
//
// # What this package must NOT do
//
//   - Keep per-token state. Tokens cannot be revoked before they expire.
//   - Read keys from disk or the environment (callers load them).
package jwt
