// Package domain contains the core business entities for the payment service.
// This is the innermost layer - no dependencies on other internal packages.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyBRL is the only currency sold through checkout.
const CurrencyBRL = "BRL"

// PurchaseIntent describes what the payer wants to buy in a single checkout attempt.
// UnitPrice and Quantity are optional here so the builder can report which one is missing.
type PurchaseIntent struct {
	PlanID      string              `json:"plan_type"`
	Title       string              `json:"title"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    *int                `json:"quantity"`
	Description string              `json:"description"`
	PayerEmail  string              `json:"payer_email"`
}

// PreferenceItem is the single line item of a checkout preference.
type PreferenceItem struct {
	ID          string
	Title       string
	Description string
	Quantity    int
	CurrencyID  string
	UnitPrice   decimal.Decimal
}

// BackURLs are the pages the payer returns to after leaving the checkout.
type BackURLs struct {
	Success string
	Failure string
	Pending string
}

// PaymentMethodPolicy constrains the payment options offered at checkout.
type PaymentMethodPolicy struct {
	MaxInstallments      int
	ExcludedPaymentTypes []string
}

// PreferenceRequest is the fully built request sent to the payment gateway.
type PreferenceRequest struct {
	Items               []PreferenceItem
	PayerEmail          string
	BackURLs            BackURLs
	NotificationURL     string
	ExternalReference   string
	PaymentMethods      PaymentMethodPolicy
	AutoReturn          string
	StatementDescriptor string
	Expires             bool
	ExpirationFrom      time.Time
	ExpirationTo        time.Time
	Metadata            map[string]any
}

// CreatedPreference is what the gateway returns for a new preference.
type CreatedPreference struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"init_point"`
	SandboxURL  string `json:"sandbox_init_point"`
}

// PaymentRecord is the canonical payment state fetched from the gateway.
// It is the only trusted source of a payment's status.
type PaymentRecord struct {
	PaymentID         string
	Status            PaymentStatus
	StatusDetail      string
	TransactionAmount decimal.Decimal
	Currency          string
	PayerEmail        string
	ExternalReference string
	PaymentMethodID   string
	PaymentTypeID     string
	DateCreated       time.Time
	DateApproved      time.Time
}

// WebhookEvent is the raw notification posted by Mercado Pago.
// Only Type and DataID drive processing; the rest is kept for logging.
type WebhookEvent struct {
	NotificationID string
	Type           string
	Action         string
	DataID         string
	LiveMode       bool
}

// TransactionOutcome is handed to the subscription activator for one
// applied (payment, status) transition.
type TransactionOutcome struct {
	PaymentID         string          `json:"payment_id"`
	PlanID            string          `json:"plan_id"`
	Status            PaymentStatus   `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	Amount            decimal.Decimal `json:"amount"`
	PayerEmail        string          `json:"payer_email"`
	ExternalReference string          `json:"external_reference"`
	ResolvedAt        time.Time       `json:"resolved_at"`
}
