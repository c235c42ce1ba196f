package units

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToML(t *testing.T) {
	tests := []struct {
		name   string
		qty    string
		unit   string
		want   string
		wantOK bool
	}{
		{"millilitres", "50", "ml", "50", true},
		{"case and spaces", "50", "  ML ", "50", true},
		{"ounces", "2", "oz", "59.147", true},
		{"centilitres", "4", "cl", "40", true},
		{"litres", "0.7", "L", "700", true},
		{"pieces", "3", "piece", "0", false},
		{"dash", "1", "dash", "0", false},
		{"empty unit", "1", "", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToML(decimal.RequireFromString(tt.qty), tt.unit)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "piece", Normalize(" Piece "))
}
