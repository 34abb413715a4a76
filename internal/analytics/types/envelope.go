package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
)

// Envelope is one decoded outbox event as delivered over Pub/Sub.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.AnalyticsEventType  `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *outbox.Actor             `json:"actor,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
}

// SessionID returns the checkout session that produced the event, if known.
func (e Envelope) SessionID() string {
	if e.Actor == nil {
		return ""
	}
	return e.Actor.SessionID
}
