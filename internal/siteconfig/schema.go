package siteconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
)

// Kind is the value type of a configuration key.
type Kind string

const (
	KindString     Kind = "string"
	KindSecret     Kind = "secret"
	KindBool       Kind = "bool"
	KindPrice      Kind = "price"
	KindDuration   Kind = "duration"
	KindURL        Kind = "url"
	KindTheme      Kind = "theme"
	KindFieldsMode Kind = "fields_mode"
)

const (
	KeyFacebookPixelID         = "facebook_pixel_id"
	KeyFacebookToken           = "facebook_token"
	KeyPixelOnCheckout         = "pixel_on_checkout"
	KeyPixelOnPurchase         = "pixel_on_purchase"
	KeyMainProductPrice        = "main_product_price"
	KeyCheckoutTheme           = "checkout_theme"
	KeyBlackwhitePulseDuration = "blackwhite_pulse_duration"
	KeyCheckoutFieldsMode      = "checkout_fields_mode"
	KeyGuaranteeImageURL       = "guarantee_image_url"
	KeyProductImageURL         = "product_image_url"
	KeyFaviconURL              = "favicon_url"
	KeySiteTitle               = "site_title"
	KeyMobileOnlyCheckout      = "mobile_only_checkout"
	KeyDesktopRedirectURL      = "desktop_redirect_url"
	KeyPushinPayBearerToken    = "pushinpay_bearer_token"
	KeyDisableRightClick       = "disable_right_click"
	KeyDisableCopy             = "disable_copy"
	KeyDisableDevtools         = "disable_devtools"
	KeyDisableTextSelection    = "disable_text_selection"
	KeyDisableShortcuts        = "disable_shortcuts"
)

// Field describes one key of the schema.
type Field struct {
	Key     string `json:"key"`
	Kind    Kind   `json:"kind"`
	Default string `json:"default"`
}

// Schema lists every accepted key with its type and default.
var Schema = []Field{
	{Key: KeyFacebookPixelID, Kind: KindString},
	{Key: KeyFacebookToken, Kind: KindSecret},
	{Key: KeyPixelOnCheckout, Kind: KindBool, Default: "false"},
	{Key: KeyPixelOnPurchase, Kind: KindBool, Default: "true"},
	{Key: KeyMainProductPrice, Kind: KindPrice, Default: "67.00"},
	{Key: KeyCheckoutTheme, Kind: KindTheme, Default: string(enums.CheckoutThemeDefault)},
	{Key: KeyBlackwhitePulseDuration, Kind: KindDuration, Default: "3.5s"},
	{Key: KeyCheckoutFieldsMode, Kind: KindFieldsMode, Default: string(enums.FieldsModeFull)},
	{Key: KeyGuaranteeImageURL, Kind: KindURL},
	{Key: KeyProductImageURL, Kind: KindURL},
	{Key: KeyFaviconURL, Kind: KindURL},
	{Key: KeySiteTitle, Kind: KindString},
	{Key: KeyMobileOnlyCheckout, Kind: KindBool, Default: "false"},
	{Key: KeyDesktopRedirectURL, Kind: KindURL, Default: "https://google.com"},
	{Key: KeyPushinPayBearerToken, Kind: KindSecret},
	{Key: KeyDisableRightClick, Kind: KindBool, Default: "false"},
	{Key: KeyDisableCopy, Kind: KindBool, Default: "false"},
	{Key: KeyDisableDevtools, Kind: KindBool, Default: "false"},
	{Key: KeyDisableTextSelection, Kind: KindBool, Default: "false"},
	{Key: KeyDisableShortcuts, Kind: KindBool, Default: "false"},
}

var fieldsByKey = func() map[string]Field {
	out := make(map[string]Field, len(Schema))
	for _, f := range Schema {
		out[f.Key] = f
	}
	return out
}()

// Lookup returns the schema entry for key.
func Lookup(key string) (Field, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// Normalize validates value against the field kind and returns the canonical
// string to store.
func (f Field) Normalize(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch f.Kind {
	case KindString, KindSecret:
		return value, nil
	case KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false", f.Key)
		}
		return strconv.FormatBool(b), nil
	case KindPrice:
		d, err := money.ParseBRL(value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.Key, err)
		}
		if d.IsNegative() {
			return "", fmt.Errorf("%s must not be negative", f.Key)
		}
		return d.StringFixed(2), nil
	case KindDuration:
		if _, err := parsePulse(value); err != nil {
			return "", fmt.Errorf("%s: %w", f.Key, err)
		}
		return value, nil
	case KindURL:
		if value == "" {
			return "", nil
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%s must be an absolute http(s) url", f.Key)
		}
		return value, nil
	case KindTheme:
		theme, err := enums.ParseCheckoutTheme(value)
		if err != nil {
			return "", err
		}
		return string(theme), nil
	case KindFieldsMode:
		mode, err := enums.ParseFieldsMode(value)
		if err != nil {
			return "", err
		}
		return string(mode), nil
	}
	return "", fmt.Errorf("unsupported kind %s", f.Kind)
}

// parsePulse accepts Go durations and bare seconds ("3.5s", "3.5", "1500ms").
func parsePulse(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
