package enums

import "fmt"

type CheckoutTheme string

const (
	CheckoutThemeDefault    CheckoutTheme = "default"
	CheckoutThemeBlackWhite CheckoutTheme = "blackwhite"
)

// ParseCheckoutTheme converts raw input into a CheckoutTheme.
func ParseCheckoutTheme(value string) (CheckoutTheme, error) {
	switch CheckoutTheme(value) {
	case CheckoutThemeDefault, CheckoutThemeBlackWhite:
		return CheckoutTheme(value), nil
	}
	return "", fmt.Errorf("invalid checkout theme %q", value)
}
