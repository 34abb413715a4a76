package enums

import "fmt"

// AnalyticsEventType is the canonical event_type for analytics routing.
type AnalyticsEventType string

const (
	AnalyticsEventCheckoutInitiated       AnalyticsEventType = "checkout_initiated"
	AnalyticsEventAddToCart               AnalyticsEventType = "add_to_cart"
	AnalyticsEventPurchaseConfirmed       AnalyticsEventType = "purchase_confirmed"
	AnalyticsEventTransactionStatusChange AnalyticsEventType = "transaction_status_changed"
)

var validAnalyticsEventTypes = []AnalyticsEventType{
	AnalyticsEventCheckoutInitiated,
	AnalyticsEventAddToCart,
	AnalyticsEventPurchaseConfirmed,
	AnalyticsEventTransactionStatusChange,
}

// IsValid reports whether the value matches the canonical analytics event_type enum.
func (a AnalyticsEventType) IsValid() bool {
	for _, candidate := range validAnalyticsEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// PixelEventName maps the analytics event to the Facebook standard event name.
// Events without a pixel counterpart return "".
func (a AnalyticsEventType) PixelEventName() string {
	switch a {
	case AnalyticsEventCheckoutInitiated:
		return "InitiateCheckout"
	case AnalyticsEventAddToCart:
		return "AddToCart"
	case AnalyticsEventPurchaseConfirmed:
		return "Purchase"
	}
	return ""
}

// ParseAnalyticsEventType converts the raw string to AnalyticsEventType.
func ParseAnalyticsEventType(value string) (AnalyticsEventType, error) {
	for _, candidate := range validAnalyticsEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics event type %q", value)
}
