package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

var hundred = decimal.NewFromInt(100)

// ParseMinor converts a decimal amount string ("125.50") to minor units.
// At most two fractional digits are accepted.
func ParseMinor(input string) (int64, error) {
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return 0, ErrTooManyDecimals
	}
	return amount.Mul(hundred).IntPart(), nil
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(value int64) string {
	return decimal.New(value, -2).StringFixed(2)
}
