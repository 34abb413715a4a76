package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReconciliationMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconciliationMetrics(reg)

	m.Observe("poller", "paid")
	m.Observe("poller", "paid")
	m.Observe("webhook", "")
	m.IncPurchase("listener")
	m.IncPollError()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_reconciliation_observations_total", "channel", "poller"); err != nil || got != 2 {
		t.Fatalf("expected 2 poller observations, got %v (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_reconciliation_observations_total", "result", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty result normalized, got %v (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pixcheckout_reconciliation_purchase_events_total", "channel", "listener"); err != nil || got != 1 {
		t.Fatalf("expected 1 purchase, got %v (%v)", got, err)
	}
	gauge := findMetricFamily(mfs, "pixcheckout_reconciliation_active_sessions")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected one active session")
	}
	errorsFamily := findMetricFamily(mfs, "pixcheckout_reconciliation_provider_poll_errors_total")
	if errorsFamily == nil || errorsFamily.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one poll error")
	}
}
