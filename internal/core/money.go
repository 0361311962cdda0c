// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values rounded to two places at entry so that
// sums and comparisons never drift the way binary floats do.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept for money.
const AmountPlaces = 2

// ParseAmount converts a user supplied decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs, empty strings, and values that
// round to zero are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundAmount(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundAmount rounds to cents, half away from zero.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}
