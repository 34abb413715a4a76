package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.IncPublished("purchase_confirmed")
	m.IncPublished("purchase_confirmed")
	m.IncRetry("add_to_cart")
	m.IncDeadLetter("checkout_initiated", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_outbox_published_total", "event_type", "purchase_confirmed"); err != nil || got != 2 {
		t.Fatalf("expected 2 published, got %v (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_outbox_publish_retries_total", "event_type", "add_to_cart"); err != nil || got != 1 {
		t.Fatalf("expected 1 retry, got %v (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected 1 dead letter, got %v (%v)", got, err)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("x")
	NewOutboxMetrics(nil).IncDeadLetter("x", "y")
}
