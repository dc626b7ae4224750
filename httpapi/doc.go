// Package httpapi is the HTTP surface of the ledger service: routing,
// request decoding, the shared error envelope, health and documentation
// endpoints, request logging and request metrics.
//
// Handlers hold no authentication logic. The router is wrapped in the gate
// from package middleware, so every handler under /api (other than signup)
// only runs for a verified bearer token.
package httpapi
