package siteconfig

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
)

// Settings is the typed view of the site_config table.
type Settings struct {
	FacebookPixelID         string
	FacebookToken           string
	PixelOnCheckout         bool
	PixelOnPurchase         bool
	MainProductPrice        decimal.Decimal
	CheckoutTheme           enums.CheckoutTheme
	BlackwhitePulseDuration time.Duration
	FieldsMode              enums.FieldsMode
	GuaranteeImageURL       string
	ProductImageURL         string
	FaviconURL              string
	SiteTitle               string
	MobileOnlyCheckout      bool
	DesktopRedirectURL      string
	PushinPayBearerToken    string
	Security                SecuritySettings
}

// SecuritySettings are front-end hardening toggles.
type SecuritySettings struct {
	DisableRightClick    bool `json:"disable_right_click"`
	DisableCopy          bool `json:"disable_copy"`
	DisableDevtools      bool `json:"disable_devtools"`
	DisableTextSelection bool `json:"disable_text_selection"`
	DisableShortcuts     bool `json:"disable_shortcuts"`
}

// PublicSettings is what the checkout page may see. Secrets never leave the server.
type PublicSettings struct {
	FacebookPixelID         string           `json:"facebook_pixel_id,omitempty"`
	PixelOnCheckout         bool             `json:"pixel_on_checkout"`
	PixelOnPurchase         bool             `json:"pixel_on_purchase"`
	MainProductPrice        string           `json:"main_product_price"`
	MainProductPriceDisplay string           `json:"main_product_price_display"`
	CheckoutTheme           string           `json:"checkout_theme"`
	BlackwhitePulseSeconds  float64          `json:"blackwhite_pulse_seconds"`
	FieldsMode              string           `json:"checkout_fields_mode"`
	GuaranteeImageURL       string           `json:"guarantee_image_url,omitempty"`
	ProductImageURL         string           `json:"product_image_url,omitempty"`
	FaviconURL              string           `json:"favicon_url,omitempty"`
	SiteTitle               string           `json:"site_title,omitempty"`
	Security                SecuritySettings `json:"security"`
}

// PixelConfigured reports whether server-side pixel events can be delivered.
func (s Settings) PixelConfigured() bool {
	return s.FacebookPixelID != "" && s.FacebookToken != ""
}

func (s Settings) Public() PublicSettings {
	return PublicSettings{
		FacebookPixelID:         s.FacebookPixelID,
		PixelOnCheckout:         s.PixelOnCheckout,
		PixelOnPurchase:         s.PixelOnPurchase,
		MainProductPrice:        s.MainProductPrice.StringFixed(2),
		MainProductPriceDisplay: money.FormatBRL(s.MainProductPrice),
		CheckoutTheme:           string(s.CheckoutTheme),
		BlackwhitePulseSeconds:  s.BlackwhitePulseDuration.Seconds(),
		FieldsMode:              string(s.FieldsMode),
		GuaranteeImageURL:       s.GuaranteeImageURL,
		ProductImageURL:         s.ProductImageURL,
		FaviconURL:              s.FaviconURL,
		SiteTitle:               s.SiteTitle,
		Security:                s.Security,
	}
}

// build folds raw rows over the schema defaults. Stored values that no longer
// validate fall back to the default so a bad row cannot break checkout.
func build(raw map[string]string) (Settings, []string) {
	values := make(map[string]string, len(Schema))
	var invalid []string
	for _, f := range Schema {
		values[f.Key] = f.Default
		stored, ok := raw[f.Key]
		if !ok {
			continue
		}
		normalized, err := f.Normalize(stored)
		if err != nil {
			invalid = append(invalid, f.Key)
			continue
		}
		values[f.Key] = normalized
	}

	price, _ := money.ParseBRL(values[KeyMainProductPrice])
	pulse, _ := parsePulse(values[KeyBlackwhitePulseDuration])

	return Settings{
		FacebookPixelID:         values[KeyFacebookPixelID],
		FacebookToken:           values[KeyFacebookToken],
		PixelOnCheckout:         flag(values[KeyPixelOnCheckout]),
		PixelOnPurchase:         flag(values[KeyPixelOnPurchase]),
		MainProductPrice:        price,
		CheckoutTheme:           enums.CheckoutTheme(values[KeyCheckoutTheme]),
		BlackwhitePulseDuration: pulse,
		FieldsMode:              enums.FieldsMode(values[KeyCheckoutFieldsMode]),
		GuaranteeImageURL:       values[KeyGuaranteeImageURL],
		ProductImageURL:         values[KeyProductImageURL],
		FaviconURL:              values[KeyFaviconURL],
		SiteTitle:               values[KeySiteTitle],
		MobileOnlyCheckout:      flag(values[KeyMobileOnlyCheckout]),
		DesktopRedirectURL:      values[KeyDesktopRedirectURL],
		PushinPayBearerToken:    values[KeyPushinPayBearerToken],
		Security: SecuritySettings{
			DisableRightClick:    flag(values[KeyDisableRightClick]),
			DisableCopy:          flag(values[KeyDisableCopy]),
			DisableDevtools:      flag(values[KeyDisableDevtools]),
			DisableTextSelection: flag(values[KeyDisableTextSelection]),
			DisableShortcuts:     flag(values[KeyDisableShortcuts]),
		},
	}, invalid
}

func flag(value string) bool {
	b, _ := strconv.ParseBool(value)
	return b
}
