package domain

import "strings"

// PaymentStatus is the gateway's status vocabulary for a payment.
type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusApproved    PaymentStatus = "approved"
	StatusRejected    PaymentStatus = "rejected"
	StatusCancelled   PaymentStatus = "cancelled"
	StatusInProcess   PaymentStatus = "in_process"
	StatusRefunded    PaymentStatus = "refunded"
	StatusChargedBack PaymentStatus = "charged_back"
	StatusUnknown     PaymentStatus = "unknown"
)

// ParsePaymentStatus normalizes a raw gateway status. Values outside the
// known vocabulary become StatusUnknown.
func ParsePaymentStatus(raw string) PaymentStatus {
	switch s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled,
		StatusInProcess, StatusRefunded, StatusChargedBack:
		return s
	default:
		return StatusUnknown
	}
}

// IsTerminal reports whether no further transition is expected for the payment.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) String() string {
	return string(s)
}

// TransitionAction names the activator operation a status maps to.
type TransitionAction string

const (
	ActionActivate    TransitionAction = "activate"
	ActionMarkPending TransitionAction = "mark_pending"
	ActionReject      TransitionAction = "reject"
	ActionCancel      TransitionAction = "cancel"
	ActionNone        TransitionAction = "none"
)

// ActionFor maps a payment status to its activator operation.
// Statuses with no operation return ActionNone.
func ActionFor(s PaymentStatus) TransitionAction {
	switch s {
	case StatusApproved:
		return ActionActivate
	case StatusPending:
		return ActionMarkPending
	case StatusRejected:
		return ActionReject
	case StatusCancelled:
		return ActionCancel
	case StatusInProcess, StatusRefunded, StatusChargedBack, StatusUnknown:
		return ActionNone
	default:
		return ActionNone
	}
}
