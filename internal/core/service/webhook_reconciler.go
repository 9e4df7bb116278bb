package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/core/reference"
	"github.com/qaura/qaura-payments/internal/platform/logger"
	"github.com/qaura/qaura-payments/internal/platform/metrics"
)

const paymentEventType = "payment"

// WebhookReconciler turns payment notifications into subscription transitions.
// Status is always read from the gateway, never from the notification.
type WebhookReconciler struct {
	gateway   ports.PaymentGateway
	activator ports.SubscriptionActivator
	timeout   time.Duration
	log       *logger.Logger
	metrics   *metrics.PaymentMetrics
	now       func() time.Time
}

// WebhookReconcilerParams wires a WebhookReconciler.
type WebhookReconcilerParams struct {
	Gateway   ports.PaymentGateway
	Activator ports.SubscriptionActivator
	Timeout   time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.PaymentMetrics
}

// NewWebhookReconciler creates a new reconciler.
func NewWebhookReconciler(p WebhookReconcilerParams) (*WebhookReconciler, error) {
	if p.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if p.Activator == nil {
		return nil, errors.New("subscription activator required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &WebhookReconciler{
		gateway:   p.Gateway,
		activator: p.Activator,
		timeout:   p.Timeout,
		log:       p.Logger,
		metrics:   p.Metrics,
		now:       time.Now,
	}, nil
}

// Handle processes one notification. It never fails; the result says whether
// the sender should be acknowledged.
func (r *WebhookReconciler) Handle(ctx context.Context, event domain.WebhookEvent) domain.ReconciliationResult {
	ctx = r.log.WithFields(ctx, map[string]any{
		"event_type": event.Type,
		"action":     event.Action,
		"data_id":    event.DataID,
	})

	result := r.handle(ctx, event)
	r.metrics.IncWebhook(string(result.Kind))

	logCtx := r.log.WithFields(ctx, map[string]any{"result": result.Kind, "status": result.Status})
	if result.Reason != "" {
		logCtx = r.log.WithField(logCtx, "reason", result.Reason)
	}
	switch result.Kind {
	case domain.ResultApplied, domain.ResultDuplicate, domain.ResultIgnored:
		r.log.Info(logCtx, "webhook.reconciled")
	case domain.ResultTransientFailure:
		r.log.Error(logCtx, "webhook.transient_failure", nil)
	default:
		r.log.Warn(logCtx, "webhook.reconciled")
	}
	return result
}

func (r *WebhookReconciler) handle(ctx context.Context, event domain.WebhookEvent) domain.ReconciliationResult {
	if !strings.EqualFold(strings.TrimSpace(event.Type), paymentEventType) {
		return domain.ReconciliationResult{Kind: domain.ResultIgnored, Reason: "event type " + event.Type}
	}

	paymentID := strings.TrimSpace(event.DataID)
	if paymentID == "" {
		return domain.ReconciliationResult{Kind: domain.ResultInvalidEvent, Reason: "missing data.id"}
	}
	ctx = r.log.WithPaymentID(ctx, paymentID)

	record, err := r.fetchPayment(ctx, paymentID)
	if err != nil {
		switch domain.CodeOf(err) {
		case domain.CodeNotFound, domain.CodeValidation:
			return domain.ReconciliationResult{Kind: domain.ResultInvalidEvent, PaymentID: paymentID, Reason: err.Error()}
		default:
			return domain.ReconciliationResult{Kind: domain.ResultTransientFailure, PaymentID: paymentID, Reason: err.Error()}
		}
	}

	result := domain.ReconciliationResult{PaymentID: paymentID, Status: record.Status}

	planID, ok := reference.Decode(record.ExternalReference)
	if !ok {
		result.Kind = domain.ResultUnrecognizedReference
		result.Reason = "external reference " + record.ExternalReference
		return result
	}

	action := domain.ActionFor(record.Status)
	if action == domain.ActionNone {
		result.Kind = domain.ResultUnhandled
		result.Reason = "no transition for status " + record.Status.String()
		return result
	}

	applied, err := r.activator.IsAlreadyApplied(ctx, paymentID, record.Status)
	if err != nil {
		result.Kind = domain.ResultTransientFailure
		result.Reason = "dedup lookup: " + err.Error()
		return result
	}
	if applied {
		result.Kind = domain.ResultDuplicate
		return result
	}

	last, found, err := r.activator.LastAppliedStatus(ctx, paymentID)
	if err != nil {
		result.Kind = domain.ResultTransientFailure
		result.Reason = "last status lookup: " + err.Error()
		return result
	}
	if found && last.IsTerminal() && last != record.Status {
		result.Kind = domain.ResultAnomaly
		result.Reason = "payment already " + last.String()
		return result
	}

	outcome := domain.TransactionOutcome{
		PaymentID:         paymentID,
		PlanID:            planID,
		Status:            record.Status,
		StatusDetail:      record.StatusDetail,
		Amount:            record.TransactionAmount,
		PayerEmail:        record.PayerEmail,
		ExternalReference: record.ExternalReference,
		ResolvedAt:        r.now().UTC(),
	}

	if err := r.apply(ctx, action, outcome); err != nil {
		switch {
		case errors.Is(err, domain.ErrTransitionAlreadyApplied):
			result.Kind = domain.ResultDuplicate
		case errors.Is(err, domain.ErrTerminalStatus):
			result.Kind = domain.ResultAnomaly
			result.Reason = err.Error()
		default:
			result.Kind = domain.ResultTransientFailure
			result.Reason = "activator: " + err.Error()
		}
		return result
	}

	result.Kind = domain.ResultApplied
	result.Outcome = &outcome
	return result
}

func (r *WebhookReconciler) fetchPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	record, err := r.gateway.GetPayment(callCtx, paymentID)
	r.metrics.ObserveGateway("get_payment", err, time.Since(start))
	if err != nil {
		return nil, classifyGatewayError(callCtx, err, "failed to fetch payment")
	}
	if record == nil {
		return nil, domain.NewServiceError(domain.ErrPaymentNotFound, "empty payment response", domain.CodeNotFound)
	}
	return record, nil
}

func (r *WebhookReconciler) apply(ctx context.Context, action domain.TransitionAction, outcome domain.TransactionOutcome) error {
	switch action {
	case domain.ActionActivate:
		return r.activator.Activate(ctx, outcome)
	case domain.ActionMarkPending:
		return r.activator.MarkPending(ctx, outcome)
	case domain.ActionReject:
		return r.activator.Reject(ctx, outcome)
	case domain.ActionCancel:
		return r.activator.Cancel(ctx, outcome)
	default:
		return errors.New("no activator operation for " + string(action))
	}
}
