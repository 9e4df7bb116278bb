// Package service implements the core business logic.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/platform/logger"
	"github.com/qaura/qaura-payments/internal/platform/metrics"
)

// PreferenceService creates single-use checkout preferences.
type PreferenceService struct {
	gateway ports.PaymentGateway
	builder *PreferenceBuilder
	urls    BuildContext
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.PaymentMetrics
}

// PreferenceServiceParams wires a PreferenceService.
type PreferenceServiceParams struct {
	Gateway ports.PaymentGateway
	Builder *PreferenceBuilder
	URLs    BuildContext
	Timeout time.Duration
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(p PreferenceServiceParams) (*PreferenceService, error) {
	if p.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if p.Builder == nil {
		return nil, errors.New("preference builder required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &PreferenceService{
		gateway: p.Gateway,
		builder: p.Builder,
		urls:    p.URLs,
		timeout: p.Timeout,
		log:     p.Logger,
		metrics: p.Metrics,
	}, nil
}

// CreatePreference validates the intent and creates a preference in Mercado Pago.
// Errors are *domain.ServiceError with CodeValidation, CodeGatewayUnavailable
// or CodeGatewayError. Validation failures never reach the gateway.
func (s *PreferenceService) CreatePreference(ctx context.Context, intent domain.PurchaseIntent) (created *domain.CreatedPreference, err error) {
	defer func() { s.metrics.IncPreference(domain.PreferenceOutcomeOf(err)) }()

	req, err := s.builder.Build(intent, s.urls)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "reason", err.Error()), "preference.validation_failed")
		return nil, err
	}

	ctx = s.log.WithFields(ctx, map[string]any{
		"external_reference": req.ExternalReference,
		"plan_id":            req.Items[0].ID,
	})

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	created, err = s.gateway.CreatePreference(callCtx, *req)
	s.metrics.ObserveGateway("create_preference", err, time.Since(start))
	if err != nil {
		err = classifyGatewayError(callCtx, err, "failed to create preference")
		s.log.Error(ctx, "preference.create_failed", err)
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "preference_id", created.ID), "preference.created")
	return created, nil
}

// classifyGatewayError normalizes adapter errors into GATEWAY_UNAVAILABLE or
// GATEWAY_ERROR, keeping codes the adapter already assigned.
func classifyGatewayError(ctx context.Context, err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewServiceError(errors.Join(domain.ErrGatewayUnavailable, err), message, domain.CodeGatewayUnavailable)
	}
	if svcErr := domain.AsServiceError(err); svcErr != nil {
		return svcErr
	}
	return domain.NewServiceError(errors.Join(domain.ErrPaymentGatewayError, err), message, domain.CodeGatewayError)
}
