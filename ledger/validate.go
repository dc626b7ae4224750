package ledger

import (
	"strconv"
	"strings"
)

// Input labels used in validation messages.
const (
	FieldAccountHolderName = "accountHolderName"
	FieldAccountBranch     = "accountBranch"
	FieldAccountNumber     = "accountNumber"
	FieldDepositAmount     = "depositAmount"
	FieldWithdrawalAmount  = "withdrawalAmount"
	FieldNewBranch         = "newBranch"
	FieldAccountBalance    = "accountBalance"
)

const (
	// MaxAmount is the largest accepted deposit or withdrawal amount.
	MaxAmount int64 = 1_000_000_000_000
	// MaxBalance is the largest balance a deposit may produce.
	MaxBalance int64 = 1_000_000_000_000_000
)

type inputs struct {
	invalid []string
}

func (in *inputs) text(label, value string) string {
	if strings.TrimSpace(value) == "" {
		in.invalid = append(in.invalid, label)
	}
	return value
}

// number accepts a non-blank string of ASCII digits that fits in an int64.
func (in *inputs) number(label, value string) int64 {
	if !isDigits(value) {
		in.invalid = append(in.invalid, label)
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		in.invalid = append(in.invalid, label)
		return 0
	}
	return n
}

func (in *inputs) err() error {
	if len(in.invalid) == 0 {
		return nil
	}
	return &ValidationError{Fields: in.invalid}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func checkAmount(label string, amount int64) error {
	if amount > MaxAmount {
		return &RangeError{Field: label, Max: MaxAmount}
	}
	return nil
}
