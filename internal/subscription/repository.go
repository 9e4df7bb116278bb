package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Repository persists transitions and subscriptions.
type Repository struct {
	db txRunner
}

func NewRepository(db txRunner) (*Repository, error) {
	if db == nil {
		return nil, errors.New("database client required")
	}
	return &Repository{db: db}, nil
}

// Migrate creates or updates the tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.DB().WithContext(ctx).AutoMigrate(Models()...)
}

// IsApplied reports whether the transition is already recorded.
func (r *Repository) IsApplied(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	var count int64
	err := r.db.DB().WithContext(ctx).
		Model(&PaymentTransition{}).
		Where("payment_id = ? AND status = ?", paymentID, string(status)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count transitions: %w", err)
	}
	return count > 0, nil
}

// LastStatus returns the payment status of the most recently applied transition.
func (r *Repository) LastStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool, error) {
	sub, err := r.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return "", false, err
	}
	if sub == nil {
		return "", false, nil
	}
	return domain.ParsePaymentStatus(sub.PaymentStatus), true, nil
}

// FindByPaymentID returns the subscription for a payment, or nil.
func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.DB().WithContext(ctx).Where("payment_id = ?", paymentID).Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &sub, nil
}

// terminalStatuses are the payment statuses a subscription never leaves.
var terminalStatuses = []string{
	string(domain.StatusApproved),
	string(domain.StatusRejected),
	string(domain.StatusCancelled),
}

// Apply records the transition and upserts the subscription in one transaction.
// It returns false when the transition was already recorded. A subscription
// whose payment status is terminal is never overwritten: the transaction is
// rolled back and domain.ErrTerminalStatus returned.
func (r *Repository) Apply(ctx context.Context, outcome domain.TransactionOutcome) (bool, error) {
	applied := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		transition := PaymentTransition{
			ID:        uuid.New(),
			PaymentID: outcome.PaymentID,
			Status:    string(outcome.Status),
			PlanID:    outcome.PlanID,
			Amount:    outcome.Amount,
			AppliedAt: outcome.ResolvedAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&transition)
		if res.Error != nil {
			return fmt.Errorf("insert transition: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		sub := subscriptionFor(outcome)
		res = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id", "state", "payment_status", "status_detail", "amount",
				"payer_email", "external_reference", "activated_at", "cancelled_at", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "subscriptions.payment_status NOT IN ?", Vars: []any{terminalStatuses}},
			}},
		}).Create(&sub)
		if res.Error != nil {
			return fmt.Errorf("upsert subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payment %s", domain.ErrTerminalStatus, outcome.PaymentID)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func subscriptionFor(outcome domain.TransactionOutcome) Subscription {
	sub := Subscription{
		ID:                uuid.New(),
		PaymentID:         outcome.PaymentID,
		PlanID:            outcome.PlanID,
		State:             stateFor(outcome.Status),
		PaymentStatus:     string(outcome.Status),
		StatusDetail:      outcome.StatusDetail,
		Amount:            outcome.Amount,
		PayerEmail:        outcome.PayerEmail,
		ExternalReference: outcome.ExternalReference,
	}
	at := outcome.ResolvedAt
	switch outcome.Status {
	case domain.StatusApproved:
		sub.ActivatedAt = &at
	case domain.StatusCancelled:
		sub.CancelledAt = &at
	}
	return sub
}

func stateFor(status domain.PaymentStatus) string {
	switch status {
	case domain.StatusApproved:
		return StateActive
	case domain.StatusRejected:
		return StateRejected
	case domain.StatusCancelled:
		return StateCancelled
	default:
		return StatePending
	}
}
