// Package units converts recipe amounts to millilitres.
package units

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ML is the canonical volume unit.
const ML = "ml"

// OunceML is one US fluid ounce in millilitres.
var OunceML = decimal.RequireFromString("29.5735")

var mlFactors = map[string]decimal.Decimal{
	"ml": decimal.NewFromInt(1),
	"cl": decimal.NewFromInt(10),
	"l":  decimal.NewFromInt(1000),
	"oz": OunceML,
}

// Normalize returns the lower-cased, trimmed unit used for lookups and map keys.
func Normalize(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// ToML converts quantity expressed in unit to millilitres.
// Count-style units (piece, dash, leaf, wedge, ...) are not convertible and return false.
func ToML(quantity decimal.Decimal, unit string) (decimal.Decimal, bool) {
	factor, ok := mlFactors[Normalize(unit)]
	if !ok {
		return decimal.Zero, false
	}
	return quantity.Mul(factor), true
}
