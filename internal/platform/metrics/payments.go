// Package metrics exposes Prometheus collectors for checkout and reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records preference creation, webhook handling and gateway latency.
// A nil *PaymentMetrics is valid and records nothing.
type PaymentMetrics struct {
	preferences *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	gateway     *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	preferences := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qaura_preferences_total",
		Help: "Checkout preference creation attempts by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qaura_webhook_events_total",
		Help: "Webhook events handled by reconciliation result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qaura_transitions_applied_total",
		Help: "Subscription transitions newly applied by payment status.",
	}, []string{"status"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qaura_gateway_request_duration_seconds",
		Help:    "Latency of Mercado Pago calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(preferences, webhooks, transitions, gateway)
	return &PaymentMetrics{
		preferences: preferences,
		webhooks:    webhooks,
		transitions: transitions,
		gateway:     gateway,
	}
}

func (m *PaymentMetrics) IncPreference(outcome string) {
	if m == nil || m.preferences == nil {
		return
	}
	m.preferences.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncWebhook(result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *PaymentMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveGateway records how long a gateway operation took.
func (m *PaymentMetrics) ObserveGateway(operation string, err error, duration time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), outcome).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
