package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

// PixelEvent is the shared shape of browser-pixel events mirrored server-side.
// Contact fields are SHA-256 hashed before they leave the API process.
type PixelEvent struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	PixID          string    `json:"pix_id,omitempty"`
	ValueMinor     int64     `json:"value_minor"`
	Currency       string    `json:"currency"`
	PixelID        string    `json:"pixel_id,omitempty"`
	EmailHash      string    `json:"email_hash,omitempty"`
	PhoneHash      string    `json:"phone_hash,omitempty"`
	ContentName    string    `json:"content_name,omitempty"`
	EventSourceURL string    `json:"event_source_url,omitempty"`
}

// Pixel returns the shared fields of any event embedding PixelEvent.
func (e PixelEvent) Pixel() PixelEvent { return e }

// CheckoutInitiatedEvent is emitted once per session when the PIX intent is issued.
type CheckoutInitiatedEvent struct {
	PixelEvent
	UpsellAdded bool `json:"upsell_added"`
}

// AddToCartEvent is emitted when the buyer selects an upsell offer.
type AddToCartEvent struct {
	PixelEvent
	UpsellID uuid.UUID `json:"upsell_id"`
}

// PurchaseConfirmedEvent is the terminal side effect of a paid transaction.
type PurchaseConfirmedEvent struct {
	PixelEvent
	Channel enums.ObservationChannel `json:"channel"`
}

// TransactionStatusChangedEvent records every effective status transition.
type TransactionStatusChangedEvent struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	PixID         string                  `json:"pix_id,omitempty"`
	Status        enums.TransactionStatus `json:"status"`
	TotalValue    string                  `json:"total_value"`
}
