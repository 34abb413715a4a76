package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBRL(t *testing.T) {
	cases := map[string]string{
		"67.00":        "67",
		"R$ 67,00":     "67",
		"197,00":       "197",
		"R$1.234,56":   "1234.56",
		" R$ 0,50 ":    "0.5",
		"19.9":         "19.9",
		"R$ 1 234,00 ": "1234",
	}
	for raw, want := range cases {
		got, err := ParseBRL(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%q parsed to %s", raw, got)
	}
}

func TestParseBRLRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "R$", "abc", "-5,00"} {
		_, err := ParseBRL(raw)
		assert.Error(t, err, raw)
	}
}

func TestMinorConversion(t *testing.T) {
	assert.Equal(t, int64(6700), ToMinor(decimal.RequireFromString("67.00")))
	assert.Equal(t, int64(26400), ToMinor(decimal.RequireFromString("67").Add(decimal.RequireFromString("197"))))
	assert.Equal(t, int64(1), ToMinor(decimal.RequireFromString("0.005")))
	assert.True(t, FromMinor(6700).Equal(decimal.RequireFromString("67")))
	assert.Equal(t, "67.00", FromMinor(6700).StringFixed(2))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 67,00", FormatBRL(decimal.RequireFromString("67")))
	assert.Equal(t, "R$ 1.234,56", FormatBRL(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$ 0,50", FormatBRL(FromMinor(MinPixAmountMinor)))
	assert.Equal(t, "R$ 1.000.000,00", FormatBRL(decimal.NewFromInt(1000000)))
}
