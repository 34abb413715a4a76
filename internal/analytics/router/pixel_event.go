package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
)

type pixelCarrier interface {
	Pixel() payloads.PixelEvent
}

// pixelEventHandler records a funnel row for InitiateCheckout, AddToCart and
// Purchase, forwarding to the Conversions API first so a retried delivery
// reuses the same event id.
type pixelEventHandler struct {
	writer    Writer
	forwarder PixelForwarder
	logg      *logger.Logger
}

func newPixelEventHandler(writer Writer, forwarder PixelForwarder, logg *logger.Logger) Handler {
	return &pixelEventHandler{writer: writer, forwarder: forwarder, logg: logg}
}

func (h *pixelEventHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	carrier, ok := payload.(pixelCarrier)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	pixel := carrier.Pixel()
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":     envelope.EventType,
		"transaction_id": pixel.TransactionID.String(),
		"value_minor":    pixel.ValueMinor,
	})

	row, err := buildFunnelRow(envelope, pixel.TransactionID.String(), pixel.PixID, payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to build funnel row", err)
		return err
	}
	row.ValueCents = ptr(pixel.ValueMinor)
	row.Currency = stringPtr(pixel.Currency)

	var contentIDs []string
	switch event := payload.(type) {
	case *payloads.CheckoutInitiatedEvent:
		row.UpsellAdded = ptr(event.UpsellAdded)
	case *payloads.AddToCartEvent:
		row.UpsellID = stringPtr(event.UpsellID.String())
		contentIDs = []string{event.UpsellID.String()}
	case *payloads.PurchaseConfirmedEvent:
		row.Channel = stringPtr(event.Channel.String())
	}

	if h.forwarder != nil && pixel.PixelID != "" {
		forwarded, err := h.forwarder.Forward(logCtx, envelope, pixel, contentIDs)
		if err != nil {
			h.logg.Error(logCtx, "failed to forward pixel event", err)
			return err
		}
		row.PixelForwarded = forwarded
	}

	if err := h.writer.InsertFunnelEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert funnel row", err)
		return err
	}

	h.logg.Info(logCtx, "pixel event recorded")
	return nil
}
