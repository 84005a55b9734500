// Package money formats amounts held in minor currency units.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultSymbol is the currency prefix used when none is configured.
const DefaultSymbol = "₹"

// minorExp converts minor units (paise, cents) to major units.
const minorExp = -2

// ErrOverflow is returned when an amount does not fit in int64 minor units.
var ErrOverflow = errors.New("amount out of range")

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Plain renders minor units as a major-unit amount with two decimals, e.g. 500000 -> "5000.00".
func Plain(minor int64) string {
	return decimal.New(minor, minorExp).StringFixed(2)
}

// Format renders minor units with the currency symbol prefix, e.g. "₹5000.00".
func Format(minor int64, symbol string) string {
	amount := Plain(minor)
	if minor < 0 {
		return "-" + symbol + amount[1:]
	}
	return symbol + amount
}

// Multiply returns price × quantity in minor units. Callers must have
// checked the product with Subtotal first.
func Multiply(price int64, quantity int) int64 {
	return decimal.NewFromInt(price).Mul(decimal.NewFromInt(int64(quantity))).IntPart()
}

// Subtotal returns price × quantity, or ErrOverflow if it leaves the int64 range.
func Subtotal(price int64, quantity int) (int64, error) {
	return fit(decimal.NewFromInt(price).Mul(decimal.NewFromInt(int64(quantity))))
}

// Add returns a + b, or ErrOverflow if it leaves the int64 range.
func Add(a, b int64) (int64, error) {
	return fit(decimal.NewFromInt(a).Add(decimal.NewFromInt(b)))
}

func fit(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, ErrOverflow
	}
	return d.IntPart(), nil
}
