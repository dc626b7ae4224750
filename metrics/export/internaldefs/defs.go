package internaldefs

import (
	goLedger "github.com/MrEthical07/goLedger"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goLedger.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goLedger.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "goledger_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: goLedger.MetricExchangeSuccess, Name: "goledger_token_exchange_success_total", Help: "Successful credential exchanges."},
	{ID: goLedger.MetricExchangeFailure, Name: "goledger_token_exchange_failure_total", Help: "Credential exchanges rejected as bad credentials."},
	{ID: goLedger.MetricExchangeRateLimited, Name: "goledger_token_exchange_rate_limited_total", Help: "Credential exchanges refused by the failure throttle."},
	{ID: goLedger.MetricValidateSuccess, Name: "goledger_validate_success_total", Help: "Bearer tokens accepted."},
	{ID: goLedger.MetricValidateInvalid, Name: "goledger_validate_invalid_total", Help: "Bearer tokens rejected as malformed or untrusted."},
	{ID: goLedger.MetricValidateExpired, Name: "goledger_validate_expired_total", Help: "Bearer tokens rejected as expired."},
	{ID: goLedger.MetricValidateScopeDenied, Name: "goledger_validate_scope_denied_total", Help: "Valid tokens lacking the required scope."},
	{ID: goLedger.MetricSignUpSuccess, Name: "goledger_signup_success_total", Help: "Registered users."},
	{ID: goLedger.MetricSignUpDuplicate, Name: "goledger_signup_duplicate_total", Help: "Sign-ups rejected for a taken username."},
	{ID: goLedger.MetricSignUpInvalid, Name: "goledger_signup_invalid_total", Help: "Sign-ups rejected by input validation."},
	{ID: goLedger.MetricSignUpRateLimited, Name: "goledger_signup_rate_limited_total", Help: "Sign-ups refused by the per-IP limit."},
	{ID: goLedger.MetricUserDeleted, Name: "goledger_user_deleted_total", Help: "Deleted users."},
	{ID: goLedger.MetricPasswordUpgraded, Name: "goledger_password_upgraded_total", Help: "Stored password hashes upgraded on login."},
	{ID: goLedger.MetricBackendError, Name: "goledger_backend_error_total", Help: "Credential store or limiter failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goLedger.MetricValidateLatency, Name: "goledger_validate_latency_seconds", Help: "Bearer token validation latency."},
}

// UpperBounds are the finite bucket bounds in seconds. The last engine
// bucket is the +Inf overflow.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BoundSuffix names each bucket, +Inf included, for exporters without
// native histogram support.
var BoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
