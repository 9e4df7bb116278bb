// Package subscription owns the durable subscription state driven by payment transitions.
package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription states stored on the subscriptions table.
const (
	StatePending   = "pending"
	StateActive    = "active"
	StateRejected  = "rejected"
	StateCancelled = "cancelled"
)

// PaymentTransition records one applied (payment, status) pair. The unique
// index is the dedup key for every transition.
type PaymentTransition struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID string          `gorm:"column:payment_id;not null;uniqueIndex:ux_payment_transitions_payment_status,priority:1"`
	Status    string          `gorm:"column:status;not null;uniqueIndex:ux_payment_transitions_payment_status,priority:2"`
	PlanID    string          `gorm:"column:plan_id;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	AppliedAt time.Time       `gorm:"column:applied_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentTransition) TableName() string { return "payment_transitions" }

// Subscription is the plan access granted by one payment.
type Subscription struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID         string          `gorm:"column:payment_id;not null;uniqueIndex"`
	PlanID            string          `gorm:"column:plan_id;not null;index"`
	State             string          `gorm:"column:state;not null"`
	PaymentStatus     string          `gorm:"column:payment_status;not null"`
	StatusDetail      string          `gorm:"column:status_detail"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	PayerEmail        string          `gorm:"column:payer_email;index"`
	ExternalReference string          `gorm:"column:external_reference"`
	ActivatedAt       *time.Time      `gorm:"column:activated_at"`
	CancelledAt       *time.Time      `gorm:"column:cancelled_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Models lists every table owned by this package, for migrations.
func Models() []any {
	return []any{&PaymentTransition{}, &Subscription{}}
}
