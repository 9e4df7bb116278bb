package service

import (
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/reference"
)

// BuildContext carries the deployment URLs a preference points back to.
type BuildContext struct {
	BaseURL          string
	NotificationPath string
}

// BuilderOptions are the checkout policies applied to every preference.
type BuilderOptions struct {
	DefaultPlanID        string
	MaxInstallments      int
	ExcludedPaymentTypes []string
	StatementDescriptor  string

	// TTL bounds how long the checkout link stays usable. Zero disables expiry.
	TTL time.Duration
}

// PreferenceBuilder validates purchase intents and assembles gateway requests.
type PreferenceBuilder struct {
	opts   BuilderOptions
	nonces *reference.NonceSource
	now    func() time.Time
}

// NewPreferenceBuilder creates a builder with the given policies.
func NewPreferenceBuilder(opts BuilderOptions, nonces *reference.NonceSource) *PreferenceBuilder {
	if nonces == nil {
		nonces = reference.NewNonceSource()
	}
	return &PreferenceBuilder{opts: opts, nonces: nonces, now: time.Now}
}

// Build turns a purchase intent into a gateway request. Validation errors are
// VALIDATION_ERROR service errors and the first failing check wins.
func (b *PreferenceBuilder) Build(intent domain.PurchaseIntent, bc BuildContext) (*domain.PreferenceRequest, error) {
	title := strings.TrimSpace(intent.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	if !intent.UnitPrice.Valid {
		return nil, validationError("unit_price is required")
	}
	if !intent.UnitPrice.Decimal.IsPositive() {
		return nil, validationError("unit_price must be greater than zero")
	}

	quantity := 1
	if intent.Quantity != nil {
		if *intent.Quantity <= 0 {
			return nil, validationError("quantity must be a positive integer")
		}
		quantity = *intent.Quantity
	}

	planID := strings.TrimSpace(intent.PlanID)
	if planID == "" {
		planID = b.opts.DefaultPlanID
	}
	if !reference.ValidPlanID(planID) {
		return nil, validationError("plan_type must be non-empty and must not contain '_'")
	}

	email := strings.TrimSpace(intent.PayerEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validationError("payer_email is not a valid address")
		}
	}

	backURLs, notificationURL, err := buildURLs(bc)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(intent.Description)
	if description == "" {
		description = "Assinatura " + title
	}

	req := &domain.PreferenceRequest{
		Items: []domain.PreferenceItem{{
			ID:          planID,
			Title:       title,
			Description: description,
			Quantity:    quantity,
			CurrencyID:  domain.CurrencyBRL,
			UnitPrice:   intent.UnitPrice.Decimal,
		}},
		PayerEmail:        email,
		BackURLs:          backURLs,
		NotificationURL:   notificationURL,
		ExternalReference: b.nonces.NewReference(planID),
		PaymentMethods: domain.PaymentMethodPolicy{
			MaxInstallments:      b.opts.MaxInstallments,
			ExcludedPaymentTypes: append([]string(nil), b.opts.ExcludedPaymentTypes...),
		},
		AutoReturn:          "approved",
		StatementDescriptor: b.opts.StatementDescriptor,
		Metadata:            map[string]any{"plan_id": planID},
	}

	if b.opts.TTL > 0 {
		now := b.now()
		req.Expires = true
		req.ExpirationFrom = now
		req.ExpirationTo = now.Add(b.opts.TTL)
	}

	return req, nil
}

func buildURLs(bc BuildContext) (domain.BackURLs, string, error) {
	base := strings.TrimRight(strings.TrimSpace(bc.BaseURL), "/")
	if base == "" {
		return domain.BackURLs{}, "", validationError("base URL is not configured")
	}

	join := func(path string) (string, error) {
		u, err := url.JoinPath(base, path)
		if err != nil {
			return "", validationError("invalid base URL")
		}
		return u, nil
	}

	var (
		urls domain.BackURLs
		err  error
	)
	if urls.Success, err = join("/sucesso"); err != nil {
		return domain.BackURLs{}, "", err
	}
	if urls.Failure, err = join("/falha"); err != nil {
		return domain.BackURLs{}, "", err
	}
	if urls.Pending, err = join("/pendente"); err != nil {
		return domain.BackURLs{}, "", err
	}

	notificationURL, err := join(bc.NotificationPath)
	if err != nil {
		return domain.BackURLs{}, "", err
	}
	return urls, notificationURL, nil
}

func validationError(reason string) error {
	return domain.NewServiceError(domain.ErrInvalidRequest, reason, domain.CodeValidation)
}
