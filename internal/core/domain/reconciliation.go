package domain

// ResultKind classifies how a webhook event was handled.
type ResultKind string

const (
	ResultIgnored               ResultKind = "ignored"
	ResultApplied               ResultKind = "applied"
	ResultDuplicate             ResultKind = "duplicate"
	ResultUnrecognizedReference ResultKind = "unrecognized_reference"
	ResultUnhandled             ResultKind = "unhandled"
	ResultAnomaly               ResultKind = "anomaly"
	ResultInvalidEvent          ResultKind = "invalid_event"
	ResultTransientFailure      ResultKind = "transient_failure"
)

// ReconciliationResult is the value returned for every handled event.
// Outcome is set only for ResultApplied.
type ReconciliationResult struct {
	Kind      ResultKind
	PaymentID string
	Status    PaymentStatus
	Reason    string
	Outcome   *TransactionOutcome
}

// Acknowledge reports whether the event should be acknowledged to the
// sender. Only transient failures ask for a redelivery.
func (r ReconciliationResult) Acknowledge() bool {
	return r.Kind != ResultTransientFailure
}
