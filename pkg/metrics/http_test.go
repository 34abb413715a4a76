package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodPost, "/api/checkout/sessions/{sessionID}/pay", http.StatusOK, 40*time.Millisecond)
	m.Observe(http.MethodPost, "/api/checkout/sessions/{sessionID}/pay", http.StatusOK, 60*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "pixcheckout_http_requests_total", "route", "/api/checkout/sessions/{sessionID}/pay")
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "pixcheckout_http_requests_total", "route", "unknown"); err != nil {
		t.Fatalf("expected empty route to be labelled unknown: %v", err)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
