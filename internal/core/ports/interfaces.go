// Package ports defines the interfaces (ports) for the payment service.
// These are contracts that adapters must implement.
package ports

import (
	"context"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

// PaymentGateway defines the interface for interacting with Mercado Pago.
type PaymentGateway interface {
	// CreatePreference creates a Checkout Pro preference.
	// Returns the preference ID and init_point URLs.
	CreatePreference(ctx context.Context, req domain.PreferenceRequest) (*domain.CreatedPreference, error)

	// GetPayment retrieves the canonical payment state by ID.
	GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
}

// SubscriptionActivator owns the durable subscription state.
// Every method must be idempotent per (PaymentID, Status): a repeated
// transition returns domain.ErrTransitionAlreadyApplied and changes nothing.
// A transition away from a terminal status returns domain.ErrTerminalStatus.
type SubscriptionActivator interface {
	IsAlreadyApplied(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error)

	// LastAppliedStatus returns the most recently applied status for a payment.
	LastAppliedStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool, error)

	Activate(ctx context.Context, outcome domain.TransactionOutcome) error
	MarkPending(ctx context.Context, outcome domain.TransactionOutcome) error
	Reject(ctx context.Context, outcome domain.TransactionOutcome) error
	Cancel(ctx context.Context, outcome domain.TransactionOutcome) error
}

// Notifier tells the site backend about applied transitions.
type Notifier interface {
	NotifyTransition(ctx context.Context, outcome domain.TransactionOutcome) error
}

// WebhookValidator validates Mercado Pago webhook signatures.
type WebhookValidator interface {
	// ValidateSignature validates the x-signature header from Mercado Pago.
	ValidateSignature(xSignature, xRequestID, dataID string) bool
}
