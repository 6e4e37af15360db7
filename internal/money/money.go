// Package money provides the decimal amount type and display formatting
// shared by the reconciliation and archive modules.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a fixed-point monetary value.
type Amount = decimal.Decimal

// Zero is the additive identity for Amount.
var Zero = decimal.Zero

// ErrNegativeAmount is returned when a non-negative amount is required.
var ErrNegativeAmount = errors.New("money: amount must not be negative")

// FromString parses a decimal amount from its string form.
func FromString(s string) (Amount, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// NonNegativeFromString parses an amount and rejects negative values.
func NonNegativeFromString(s string) (Amount, error) {
	amt, err := FromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if amt.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return amt, nil
}

// Format renders an amount with exactly two fractional digits.
func Format(a Amount) string {
	return a.StringFixed(2)
}

// FormatWithSymbol prefixes the formatted amount with a display-only
// currency symbol. The symbol is never parsed back out of the result.
func FormatWithSymbol(symbol string, a Amount) string {
	if symbol == "" {
		return Format(a)
	}
	return symbol + Format(a)
}
