// Package middleware is the authorization gate that sits in front of every
// route. It classifies each request into one of three zones and enforces the
// matching check before any handler runs.
//
// # Zones
//
//   - Public: an explicit allow-list of exact paths and prefixes. Forwarded as is.
//   - Exchange: a single path that accepts HTTP Basic credentials, trades them
//     for a token via the engine, and forwards with the result in the context.
//   - Protected: everything else. Requires a valid bearer token and, when
//     configured, a scope.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself. All decisions are delegated to IssueToken and Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Keep any state between requests.
//   - Tell callers whether a failed exchange named an unknown user.
package middleware
