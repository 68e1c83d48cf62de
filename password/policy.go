package password

import (
	"errors"
	"strings"
	"unicode"
)

const minPolicyLength = 8

const symbolSet = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// ErrPolicy is returned by [Validate] for any password that fails the
// strength policy. The message never echoes the password.
var ErrPolicy = errors.New("password must be at least 8 characters and contain an uppercase letter, a digit, and a symbol")

// Validate enforces the strength policy applied before hashing: at least
// 8 characters with an uppercase letter, a digit, and a symbol.
func Validate(password string) error {
	if len(password) < minPolicyLength {
		return ErrPolicy
	}

	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(symbolSet, r):
			symbol = true
		}
	}

	if !upper || !digit || !symbol {
		return ErrPolicy
	}
	return nil
}
