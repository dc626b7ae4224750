// Package rate provides the Redis-backed fixed-window counters that throttle
// the credential exchange and signup.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Key suffixes under
// the configured prefix:
//   - lx:  failed exchanges per username (lowercased)
//   - lxi: failed exchanges per client IP
//   - su:  signups per client IP
//
// A username or IP is blocked once its counter reaches the configured maximum
// and stays blocked until the window expires.
//
// # What this package must NOT do
//
//   - Decide whether credentials are valid.
//   - Be imported outside the goLedger module.
package rate
