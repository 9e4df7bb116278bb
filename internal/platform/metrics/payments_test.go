package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncPreference("created")
	m.IncPreference("created")
	m.IncWebhook("duplicate")
	m.IncTransition("")
	m.ObserveGateway("get_payment", errors.New("timeout"), 150*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, mfs, "qaura_preferences_total", "outcome", "created"))
	assert.Equal(t, 1.0, counterValue(t, mfs, "qaura_webhook_events_total", "result", "duplicate"))
	assert.Equal(t, 1.0, counterValue(t, mfs, "qaura_transitions_applied_total", "status", "unknown"))

	mf := findFamily(mfs, "qaura_gateway_request_duration_seconds")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilPaymentMetricsIsNoop(t *testing.T) {
	var m *PaymentMetrics
	assert.NotPanics(t, func() {
		m.IncPreference("created")
		m.IncWebhook("applied")
		m.IncTransition("approved")
		m.ObserveGateway("create_preference", nil, time.Second)
	})
	assert.NotPanics(t, func() { NewPaymentMetrics(nil).IncWebhook("applied") })
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	mf := findFamily(mfs, name)
	require.NotNil(t, mf, name)
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s missing label %s=%s", name, label, value)
	return 0
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
