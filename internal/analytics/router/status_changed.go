package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
)

type statusChangedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newStatusChangedHandler(writer Writer, logg *logger.Logger) Handler {
	return &statusChangedHandler{writer: writer, logg: logg}
}

func (h *statusChangedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.TransactionStatusChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for transaction_status_changed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":     envelope.EventType,
		"transaction_id": event.TransactionID.String(),
		"status":         string(event.Status),
	})

	row, err := buildFunnelRow(envelope, event.TransactionID.String(), event.PixID, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build funnel row", err)
		return err
	}
	row.Status = stringPtr(string(event.Status))
	if value, err := money.ParseBRL(event.TotalValue); err == nil {
		row.ValueCents = ptr(money.ToMinor(value))
		row.Currency = stringPtr("BRL")
	}

	if err := h.writer.InsertFunnelEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert funnel row", err)
		return err
	}
	h.logg.Info(logCtx, "status change recorded")
	return nil
}
