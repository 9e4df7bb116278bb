// Package notifier provides the HTTP client that tells the site backend about
// applied subscription transitions.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/platform/logger"
)

// ErrCallbackFailed is returned when the backend does not accept a notification.
var ErrCallbackFailed = errors.New("notification callback failed")

// Payload is the body posted for every applied transition.
type Payload struct {
	Event             string          `json:"event"`
	PaymentID         string          `json:"payment_id"`
	PlanID            string          `json:"plan_id"`
	PaymentStatus     string          `json:"payment_status"`
	StatusDetail      string          `json:"status_detail,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	PayerEmail        string          `json:"payer_email,omitempty"`
	ExternalReference string          `json:"external_reference"`
	Timestamp         string          `json:"timestamp"`
}

// Client implements ports.Notifier over HTTP.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a notifier posting to url.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(url),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NotifyTransition posts the outcome as JSON. Any non-2xx answer is an error.
func (c *Client) NotifyTransition(ctx context.Context, outcome domain.TransactionOutcome) error {
	jsonBody, err := json.Marshal(NewPayload(outcome))
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrCallbackFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrCallbackFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: backend returned status %d: %s", ErrCallbackFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// NewPayload converts an outcome into the callback body.
func NewPayload(outcome domain.TransactionOutcome) Payload {
	return Payload{
		Event:             EventFor(outcome.Status),
		PaymentID:         outcome.PaymentID,
		PlanID:            outcome.PlanID,
		PaymentStatus:     outcome.Status.String(),
		StatusDetail:      outcome.StatusDetail,
		Amount:            outcome.Amount,
		PayerEmail:        outcome.PayerEmail,
		ExternalReference: outcome.ExternalReference,
		Timestamp:         outcome.ResolvedAt.UTC().Format(time.RFC3339),
	}
}

// EventFor maps a payment status to its callback event name.
func EventFor(status domain.PaymentStatus) string {
	switch status {
	case domain.StatusApproved:
		return "subscription.activated"
	case domain.StatusPending:
		return "payment.pending"
	case domain.StatusRejected:
		return "payment.rejected"
	case domain.StatusCancelled:
		return "payment.cancelled"
	default:
		return "payment.updated"
	}
}

// LogNotifier only logs notifications. It is used when no callback URL is configured.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyTransition(ctx context.Context, outcome domain.TransactionOutcome) error {
	n.log.Info(n.log.WithFields(ctx, map[string]any{
		"event":       EventFor(outcome.Status),
		"plan_id":     outcome.PlanID,
		"payer_email": outcome.PayerEmail,
	}), "notifier.skipped_no_url")
	return nil
}
