// Package money converts between BRL display strings, decimals, and integer
// minor units (centavos). Amounts sent to the payment provider are always minor units.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinPixAmountMinor is the smallest charge the PIX provider accepts (R$ 0,50).
const MinPixAmountMinor int64 = 50

var hundred = decimal.NewFromInt(100)

// ParseBRL parses display prices such as "R$ 1.234,56", "197,00", or "67.00".
// A comma marks the decimal separator; when present, dots are thousands separators.
func ParseBRL(raw string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(raw, "R$", "")
	clean = strings.Join(strings.Fields(clean), "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	}
	value, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", raw)
	}
	return value, nil
}

// ToMinor rounds a major-unit amount to centavos.
func ToMinor(value decimal.Decimal) int64 {
	return value.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts centavos back to a two-place major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatBRL renders a value as "R$ 1.234,56".
func FormatBRL(value decimal.Decimal) string {
	fixed := value.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, b.String(), frac)
}
