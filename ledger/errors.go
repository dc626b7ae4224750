package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadRequest marks malformed or missing input. It is the root of
	// ValidationError and RangeError.
	ErrBadRequest = errors.New("bad request")
	// ErrAccountNotFound is returned when no account matches the number.
	ErrAccountNotFound = errors.New("Account not found.")
	// ErrInsufficientBalance is returned when a withdrawal exceeds the balance.
	ErrInsufficientBalance = errors.New("Withdrawal amount is greater than the available account balance.")
	// ErrAccountExists is returned by a Store when the account number is taken.
	ErrAccountExists = errors.New("account number already exists")
	// ErrNumberSpaceExhausted is returned when no free account number was found.
	ErrNumberSpaceExhausted = errors.New("could not allocate an account number")
)

const validationPrefix = "Provide the mandatory request input(s): "

// ValidationError lists every missing or invalid input of one request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return validationPrefix + strings.Join(e.Fields, ",")
}

func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// RangeError reports a numeric input or result above its allowed maximum.
type RangeError struct {
	Field string
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s exceeds the maximum allowed value %d", e.Field, e.Max)
}

func (e *RangeError) Unwrap() error {
	return ErrBadRequest
}
