package decimal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dec "github.com/rezonia/ksef-sync/internal/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "comma separator", input: "1234,56", expected: "1234.56"},
		{name: "dot separator", input: "1234.56", expected: "1234.56"},
		{name: "integer", input: "100", expected: "100"},
		{name: "empty yields zero", input: "", expected: "0"},
		{name: "whitespace yields zero", input: "  ", expected: "0"},
		{name: "negative with comma", input: "-12,50", expected: "-12.5"},
		{name: "three fraction digits", input: "0,125", expected: "0.125"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	_, err := dec.ParseAmount("abc")
	require.Error(t, err)

	_, err = dec.ParseAmount("12,34,56")
	require.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1234.56", dec.FormatAmount(dec.MustParseAmount("1234,56")))
	assert.Equal(t, "1234.50", dec.FormatAmount(dec.MustParseAmount("1234,5")))
	assert.Equal(t, "0.00", dec.FormatAmount(dec.Zero))
	assert.Equal(t, "-7.10", dec.FormatAmount(dec.MustParseAmount("-7,1")))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "2.000", dec.FormatQuantity(decimal.NewFromInt(2)))
	assert.Equal(t, "0.125", dec.FormatQuantity(dec.MustParseAmount("0,125")))
}

func TestSum(t *testing.T) {
	values := []decimal.Decimal{
		dec.MustParseAmount("0,1"),
		dec.MustParseAmount("0,2"),
		dec.MustParseAmount("0,3"),
	}
	assert.True(t, dec.Sum(values).Equal(dec.MustParseAmount("0,6")))
	assert.True(t, dec.Sum(nil).IsZero())
}
