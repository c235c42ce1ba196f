// Package types provides value types shared by the inventory and order domains.
package types

import (
	"github.com/shopspring/decimal"
)

// TruncInt truncates a decimal toward zero and returns the integer part.
// Whole-unit ledger quantities are derived from fractional amounts this way:
// 1.9 bottles consumes one bottle, -1.9 becomes -1.
func TruncInt(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// CeilDiv returns ceil(a/b) for positive b.
func CeilDiv(a, b decimal.Decimal) int64 {
	return a.Div(b).Ceil().IntPart()
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Valid wraps d as a present NullDecimal.
func Valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Coalesce returns the first present value.
func Coalesce(values ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
