package router

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/pixcheckout-backend/internal/analytics/writer"
)

func buildFunnelRow(envelope types.Envelope, transactionID, pixID string, payload any) (types.FunnelEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.FunnelEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	if transactionID == "" {
		transactionID = envelope.AggregateID
	}
	return types.FunnelEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt.UTC(),
		TransactionID: transactionID,
		PixID:         stringPtr(pixID),
		SessionID:     stringPtr(envelope.SessionID()),
		Payload:       payloadJSON,
	}, nil
}

// stringPtr maps blank strings to NULL columns.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ptr[T any](v T) *T { return &v }
