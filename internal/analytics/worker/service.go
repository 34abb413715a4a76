// Package worker consumes the funnel topic and hands each event to the analytics router.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/router"
	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
)

const consumerName = "analytics-worker"

// Handler processes one decoded funnel envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type claimGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service acks malformed and duplicate messages and nacks only what a retry can fix.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	guard        claimGuard
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, guard claimGuard, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case guard == nil:
		return nil, errors.New("idempotency guard is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, guard: guard, logg: logg}, nil
}

type verdict int

const (
	ack verdict = iota
	nack
)

// Run receives until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) verdict {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.envelope.invalid")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"transaction_id": envelope.AggregateID,
		"session_id":     envelope.SessionID(),
		"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(ctx, "analytics.envelope.bad_event_id")
		return ack
	}

	first, err := s.guard.Claim(ctx, consumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "analytics.idempotency.failed", err)
		return nack
	}
	if !first {
		s.logg.Info(ctx, "analytics.event.duplicate")
		return ack
	}

	if err := s.handler.Handle(ctx, *envelope); err != nil {
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(ctx, "analytics.event.unsupported")
			return ack
		}
		s.logg.Error(ctx, "analytics.event.failed", err)
		if err := s.guard.Release(ctx, consumerName, eventID); err != nil {
			s.logg.Error(ctx, "analytics.idempotency.release_failed", err)
		}
		return nack
	}

	s.logg.Info(ctx, "analytics.event.handled")
	return ack
}

// decodeEnvelope combines the stored outbox envelope with the routing
// attributes the relay stamps on every message.
func decodeEnvelope(msg *gcppubsub.Message) (*types.Envelope, error) {
	stored, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}
	attr := func(name string) string {
		return strings.TrimSpace(msg.Attributes[name])
	}

	eventType, err := enums.ParseAnalyticsEventType(attr("event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attr("event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	actor := stored.Actor
	if actor == nil && attr("session_id") != "" {
		actor = &outbox.Actor{SessionID: attr("session_id")}
	}

	return &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         actor,
		Payload:       stored.Data,
	}, nil
}
