// Package mercadopago implements the PaymentGateway interface using the official SDK.
package mercadopago

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentGetter interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// Adapter implements ports.PaymentGateway using Mercado Pago SDK.
type Adapter struct {
	preferences preferenceCreator
	payments    paymentGetter
}

// NewAdapter builds the SDK clients once for the given access token.
func NewAdapter(accessToken string) (*Adapter, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("mercado pago access token required")
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("create mercado pago config: %w", err)
	}
	return &Adapter{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
	}, nil
}

// CreatePreference creates a Checkout Pro preference.
func (a *Adapter) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (*domain.CreatedPreference, error) {
	result, err := a.preferences.Create(ctx, toPreferenceRequest(req))
	if err != nil {
		return nil, classify(err, "failed to create preference", false)
	}

	return &domain.CreatedPreference{
		ID:          result.ID,
		CheckoutURL: result.InitPoint,
		SandboxURL:  result.SandboxInitPoint,
	}, nil
}

// GetPayment retrieves payment details from Mercado Pago.
func (a *Adapter) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil || id <= 0 {
		return nil, domain.NewServiceError(domain.ErrInvalidRequest,
			"invalid payment ID format", domain.CodeValidation)
	}

	result, err := a.payments.Get(ctx, id)
	if err != nil {
		return nil, classify(err, "failed to get payment "+paymentID, true)
	}

	return &domain.PaymentRecord{
		PaymentID:         strconv.Itoa(result.ID),
		Status:            domain.ParsePaymentStatus(result.Status),
		StatusDetail:      result.StatusDetail,
		TransactionAmount: decimal.NewFromFloat(result.TransactionAmount),
		Currency:          result.CurrencyID,
		PayerEmail:        result.Payer.Email,
		ExternalReference: result.ExternalReference,
		PaymentMethodID:   result.PaymentMethodID,
		PaymentTypeID:     result.PaymentTypeID,
		DateCreated:       result.DateCreated,
		DateApproved:      result.DateApproved,
	}, nil
}

func toPreferenceRequest(req domain.PreferenceRequest) preference.Request {
	items := make([]preference.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, preference.ItemRequest{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			CurrencyID:  item.CurrencyID,
		})
	}

	excluded := make([]preference.ExcludedPaymentTypeRequest, 0, len(req.PaymentMethods.ExcludedPaymentTypes))
	for _, t := range req.PaymentMethods.ExcludedPaymentTypes {
		excluded = append(excluded, preference.ExcludedPaymentTypeRequest{ID: t})
	}

	out := preference.Request{
		Items:             items,
		ExternalReference: req.ExternalReference,
		AutoReturn:        req.AutoReturn,
		BackURLs: &preference.BackURLsRequest{
			Success: req.BackURLs.Success,
			Failure: req.BackURLs.Failure,
			Pending: req.BackURLs.Pending,
		},
		NotificationURL:     req.NotificationURL,
		StatementDescriptor: req.StatementDescriptor,
		PaymentMethods: &preference.PaymentMethodsRequest{
			Installments:         req.PaymentMethods.MaxInstallments,
			ExcludedPaymentTypes: excluded,
		},
		Metadata: req.Metadata,
	}

	if req.PayerEmail != "" {
		out.Payer = &preference.PayerRequest{Email: req.PayerEmail}
	}
	if req.Expires {
		from, to := req.ExpirationFrom, req.ExpirationTo
		out.Expires = true
		out.ExpirationDateFrom = &from
		out.ExpirationDateTo = &to
	}

	return out
}

// classify maps SDK and transport errors onto gateway error codes.
// Timeouts, throttling and 5xx are unavailable. A 404 on a lookup means the
// payment does not exist; every other 4xx is a gateway error.
func classify(err error, message string, lookup bool) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewServiceError(errors.Join(domain.ErrGatewayUnavailable, err), message, domain.CodeGatewayUnavailable)
	}

	var respErr *mperror.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case lookup && respErr.StatusCode == http.StatusNotFound:
			return domain.NewServiceError(errors.Join(domain.ErrPaymentNotFound, err), message, domain.CodeNotFound)
		case respErr.StatusCode == http.StatusTooManyRequests, respErr.StatusCode >= http.StatusInternalServerError:
			return domain.NewServiceError(errors.Join(domain.ErrGatewayUnavailable, err), message, domain.CodeGatewayUnavailable)
		default:
			return domain.NewServiceError(errors.Join(domain.ErrPaymentGatewayError, err), message, domain.CodeGatewayError)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewServiceError(errors.Join(domain.ErrGatewayUnavailable, err), message, domain.CodeGatewayUnavailable)
	}

	return domain.NewServiceError(errors.Join(domain.ErrPaymentGatewayError, err), message, domain.CodeGatewayError)
}
