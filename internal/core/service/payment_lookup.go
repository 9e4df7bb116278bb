package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/platform/metrics"
)

// PaymentLookupService reads canonical payment state for status pages.
type PaymentLookupService struct {
	gateway ports.PaymentGateway
	timeout time.Duration
	metrics *metrics.PaymentMetrics
}

// NewPaymentLookupService creates a lookup service.
func NewPaymentLookupService(gateway ports.PaymentGateway, timeout time.Duration, m *metrics.PaymentMetrics) (*PaymentLookupService, error) {
	if gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	return &PaymentLookupService{gateway: gateway, timeout: timeout, metrics: m}, nil
}

// GetPayment fetches a payment by id.
func (s *PaymentLookupService) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, validationError("payment id is required")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	record, err := s.gateway.GetPayment(ctx, paymentID)
	s.metrics.ObserveGateway("get_payment", err, time.Since(start))
	if err != nil {
		return nil, classifyGatewayError(ctx, err, "failed to fetch payment")
	}
	if record == nil {
		return nil, domain.NewServiceError(domain.ErrPaymentNotFound, "payment "+paymentID, domain.CodeNotFound)
	}
	return record, nil
}
