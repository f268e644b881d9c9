// Package decimal wraps shopspring/decimal with the two numeric conventions
// this pipeline deals with: KSeF XML uses comma decimal separators, the
// Symfonia FK output uses dot separators with fixed precision. All parsing
// and formatting goes through these helpers; nothing relies on locale state.
package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// ParseAmount parses a monetary value from KSeF XML text. The remote
// service's locale writes "1234,56"; the comma is normalized to a dot before
// conversion. Empty input yields zero, not an error, because missing XML
// nodes resolve to empty strings.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

// MustParseAmount parses like ParseAmount, panics on error. Test helper.
func MustParseAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatAmount renders a monetary value with a dot separator and exactly
// two fractional digits, as the FK grammar requires.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity with three fractional digits
func FormatQuantity(d decimal.Decimal) string {
	return d.StringFixed(3)
}

// Sum adds a slice of decimals without intermediate rounding
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
