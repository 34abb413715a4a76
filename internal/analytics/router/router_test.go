package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
)

func TestRouterUnsupportedEvent(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil, nil)
	env := types.Envelope{
		EventType: enums.AnalyticsEventType("unsupported"),
		Payload:   []byte(`{"foo":"bar"}`),
	}
	err := router.Handle(context.Background(), env)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestRouterRoutesToOverride(t *testing.T) {
	handler := &stubHandler{}
	router := newTestRouter(t, &fakeWriter{}, nil, map[enums.AnalyticsEventType]Handler{
		enums.AnalyticsEventAddToCart: handler,
	})
	data, _ := json.Marshal(payloads.AddToCartEvent{UpsellID: uuid.New()})
	env := types.Envelope{EventType: enums.AnalyticsEventAddToCart, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
}

func TestRouterRejectsEmptyPayload(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil, nil)
	err := router.Handle(context.Background(), types.Envelope{EventType: enums.AnalyticsEventPurchaseConfirmed})
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestPurchaseForwardedBeforeInsert(t *testing.T) {
	writer := &fakeWriter{}
	forwarder := &fakeForwarder{delivered: true}
	router := newTestRouter(t, writer, forwarder, nil)

	txnID := uuid.New()
	data, _ := json.Marshal(payloads.PurchaseConfirmedEvent{
		PixelEvent: payloads.PixelEvent{
			TransactionID: txnID,
			PixID:         "PIX-1",
			ValueMinor:    6700,
			Currency:      "BRL",
			PixelID:       "123",
		},
		Channel: enums.ChannelPoller,
	})
	env := types.Envelope{
		EventID:     "evt-1",
		EventType:   enums.AnalyticsEventPurchaseConfirmed,
		AggregateID: txnID.String(),
		OccurredAt:  time.Now(),
		Actor:       &outbox.Actor{SessionID: "sess-1"},
		Payload:     data,
	}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle purchase: %v", err)
	}

	if len(forwarder.calls) != 1 {
		t.Fatalf("expected 1 forward, got %d", len(forwarder.calls))
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(writer.rows))
	}
	row := writer.rows[0]
	if !row.PixelForwarded {
		t.Fatal("expected pixel_forwarded true")
	}
	if row.Channel == nil || *row.Channel != "poller" {
		t.Fatalf("unexpected channel %v", row.Channel)
	}
	if row.ValueCents == nil || *row.ValueCents != 6700 {
		t.Fatalf("unexpected value %v", row.ValueCents)
	}
	if row.SessionID == nil || *row.SessionID != "sess-1" {
		t.Fatalf("unexpected session %v", row.SessionID)
	}
	if !row.Payload.Valid {
		t.Fatal("payload json not valid")
	}
}

func TestPixelEventWithoutPixelIDIsNotForwarded(t *testing.T) {
	writer := &fakeWriter{}
	forwarder := &fakeForwarder{delivered: true}
	router := newTestRouter(t, writer, forwarder, nil)

	data, _ := json.Marshal(payloads.CheckoutInitiatedEvent{
		PixelEvent:  payloads.PixelEvent{TransactionID: uuid.New(), ValueMinor: 8690},
		UpsellAdded: true,
	})
	env := types.Envelope{EventID: "evt-2", EventType: enums.AnalyticsEventCheckoutInitiated, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle checkout: %v", err)
	}
	if len(forwarder.calls) != 0 {
		t.Fatalf("expected no forward, got %d", len(forwarder.calls))
	}
	if len(writer.rows) != 1 || writer.rows[0].PixelForwarded {
		t.Fatalf("unexpected rows %+v", writer.rows)
	}
	if writer.rows[0].UpsellAdded == nil || !*writer.rows[0].UpsellAdded {
		t.Fatal("expected upsell_added true")
	}
}

func TestForwardFailureSkipsInsert(t *testing.T) {
	writer := &fakeWriter{}
	forwarder := &fakeForwarder{err: errors.New("graph unavailable")}
	router := newTestRouter(t, writer, forwarder, nil)

	data, _ := json.Marshal(payloads.AddToCartEvent{
		PixelEvent: payloads.PixelEvent{TransactionID: uuid.New(), PixelID: "123"},
		UpsellID:   uuid.New(),
	})
	err := router.Handle(context.Background(), types.Envelope{EventID: "evt-3", EventType: enums.AnalyticsEventAddToCart, Payload: data})
	if err == nil {
		t.Fatal("expected forward error")
	}
	if len(writer.rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(writer.rows))
	}
}

func TestStatusChangedRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil, nil)

	txnID := uuid.New()
	data, _ := json.Marshal(payloads.TransactionStatusChangedEvent{
		TransactionID: txnID,
		PixID:         "PIX-9",
		Status:        enums.TransactionStatusPaid,
		TotalValue:    "86.90",
	})
	env := types.Envelope{EventID: "evt-4", EventType: enums.AnalyticsEventTransactionStatusChange, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle status change: %v", err)
	}
	row := writer.rows[0]
	if row.TransactionID != txnID.String() {
		t.Fatalf("unexpected transaction id %s", row.TransactionID)
	}
	if row.Status == nil || *row.Status != "paid" {
		t.Fatalf("unexpected status %v", row.Status)
	}
	if row.ValueCents == nil || *row.ValueCents != 8690 {
		t.Fatalf("unexpected value %v", row.ValueCents)
	}
}

func newTestRouter(t *testing.T, writer Writer, forwarder PixelForwarder, overrides map[enums.AnalyticsEventType]Handler) *Router {
	t.Helper()
	router, err := NewRouter(writer, forwarder, logger.New(logger.Options{ServiceName: "router-test"}), overrides)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router
}

type stubHandler struct {
	called bool
}

func (s *stubHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	s.called = true
	return nil
}

type fakeWriter struct {
	mu   sync.Mutex
	rows []types.FunnelEventRow
}

func (f *fakeWriter) InsertFunnelEvent(_ context.Context, row types.FunnelEventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

type fakeForwarder struct {
	delivered bool
	err       error
	calls     []payloads.PixelEvent
}

func (f *fakeForwarder) Forward(_ context.Context, _ types.Envelope, event payloads.PixelEvent, _ []string) (bool, error) {
	f.calls = append(f.calls, event)
	if f.err != nil {
		return false, f.err
	}
	return f.delivered, nil
}
