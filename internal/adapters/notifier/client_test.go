package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

func sampleOutcome() domain.TransactionOutcome {
	return domain.TransactionOutcome{
		PaymentID:         "1001",
		PlanID:            "profissional",
		Status:            domain.StatusApproved,
		Amount:            decimal.RequireFromString("197.00"),
		PayerEmail:        "aluno@example.com",
		ExternalReference: "plan_profissional_1712345678901",
		ResolvedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifyTransitionPostsPayload(t *testing.T) {
	var (
		got    Payload
		apiKey string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Internal-API-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "key-1", time.Second).NotifyTransition(context.Background(), sampleOutcome())
	require.NoError(t, err)

	assert.Equal(t, "key-1", apiKey)
	assert.Equal(t, "subscription.activated", got.Event)
	assert.Equal(t, "profissional", got.PlanID)
	assert.Equal(t, "approved", got.PaymentStatus)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(197)))
	assert.Equal(t, "2026-03-01T12:00:00Z", got.Timestamp)
}

func TestNotifyTransitionNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", time.Second).NotifyTransition(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallbackFailed)
	assert.Contains(t, err.Error(), "502")
}

func TestEventFor(t *testing.T) {
	assert.Equal(t, "payment.pending", EventFor(domain.StatusPending))
	assert.Equal(t, "payment.rejected", EventFor(domain.StatusRejected))
	assert.Equal(t, "payment.updated", EventFor(domain.StatusRefunded))
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier(nil).NotifyTransition(context.Background(), sampleOutcome()))
}
