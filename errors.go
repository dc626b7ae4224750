package goLedger

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrAuthenticationFailed is the single outcome of a failed credential
	// exchange. Unknown users and wrong passwords are indistinguishable.
	ErrAuthenticationFailed = errors.New("Bad credentials")
	// ErrTokenInvalid covers malformed, tampered and foreign tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once the verification instant reaches exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrInsufficientScope is returned when a valid token lacks the required authority.
	ErrInsufficientScope = errors.New("insufficient scope")
	// ErrUserAlreadyExists is returned by SignUp for a taken username.
	ErrUserAlreadyExists = errors.New("Username is already in use")
	// ErrArgumentValidation is the parent of all signup input failures.
	ErrArgumentValidation = errors.New("argument validation failed")
	// ErrPasswordMismatch is returned when password and its confirmation differ.
	ErrPasswordMismatch = &mismatchError{}
	// ErrUserNotFound is returned by DeleteUser for an unknown username.
	ErrUserNotFound = errors.New("User not found.")
	// ErrExchangeRateLimited is returned while a username or IP is throttled.
	ErrExchangeRateLimited = errors.New("too many failed attempts")
	// ErrSignUpRateLimited is returned while an IP is over its signup budget.
	ErrSignUpRateLimited = errors.New("too many signups")
	// ErrSignUpDisabled is returned by SignUp when registration is turned off.
	ErrSignUpDisabled = errors.New("signup disabled")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrConfigInvalid wraps every Config.Validate failure.
	ErrConfigInvalid = errors.New("invalid config")
	// ErrBackendUnavailable wraps credential store and Redis failures.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
)

type mismatchError struct{}

func (*mismatchError) Error() string {
	return "Values of 'password' and 'matchPassword' are different"
}

func (*mismatchError) Unwrap() error { return ErrArgumentValidation }

// SignUpValidationError lists per-field signup failures keyed by the
// request field name.
type SignUpValidationError struct {
	Invalid map[string]string
}

func (e *SignUpValidationError) Error() string {
	fields := make([]string, 0, len(e.Invalid))
	for f := range e.Invalid {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Invalid[f])
	}
	return "invalid signup request: " + strings.Join(parts, ", ")
}

func (e *SignUpValidationError) Unwrap() error { return ErrArgumentValidation }
