package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconciliationMetrics tracks how payment confirmations are observed.
type ReconciliationMetrics struct {
	observations *prometheus.CounterVec
	purchases    *prometheus.CounterVec
	pollErrors   prometheus.Counter
	sessions     prometheus.Gauge
}

func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	observations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "observations_total",
		Help:      "Payment status observations by channel and result.",
	}, []string{"channel", "result"})
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "purchase_events_total",
		Help:      "Purchase side effects fired, by the channel that won the latch.",
	}, []string{"channel"})
	pollErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "provider_poll_errors_total",
		Help:      "Provider status checks that failed and were retried on the next tick.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "active_sessions",
		Help:      "Checkout sessions with live observers.",
	})
	reg.MustRegister(observations, purchases, pollErrors, sessions)
	return &ReconciliationMetrics{
		observations: observations,
		purchases:    purchases,
		pollErrors:   pollErrors,
		sessions:     sessions,
	}
}

func (m *ReconciliationMetrics) Observe(channel, result string) {
	if m == nil || m.observations == nil {
		return
	}
	m.observations.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}

func (m *ReconciliationMetrics) IncPurchase(channel string) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *ReconciliationMetrics) IncPollError() {
	if m == nil || m.pollErrors == nil {
		return
	}
	m.pollErrors.Inc()
}

func (m *ReconciliationMetrics) SessionStarted() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Inc()
}

func (m *ReconciliationMetrics) SessionEnded() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Dec()
}
