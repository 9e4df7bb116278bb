package service

import (
	"context"
	"sync"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

type fakeGateway struct {
	mu                sync.Mutex
	created           []domain.PreferenceRequest
	createErr         error
	payments          map[string]*domain.PaymentRecord
	getErrs           []error
	getCalls          int
	blockUntilCtxDone bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*domain.PaymentRecord{}}
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (*domain.CreatedPreference, error) {
	if g.blockUntilCtxDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &domain.CreatedPreference{
		ID:          "pref-123",
		CheckoutURL: "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=pref-123",
		SandboxURL:  "https://sandbox.mercadopago.com.br/checkout/v1/redirect?pref_id=pref-123",
	}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	if g.blockUntilCtxDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if len(g.getErrs) > 0 {
		err := g.getErrs[0]
		g.getErrs = g.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	record, ok := g.payments[paymentID]
	if !ok {
		return nil, domain.NewServiceError(domain.ErrPaymentNotFound, "payment "+paymentID, domain.CodeNotFound)
	}
	copied := *record
	return &copied, nil
}

func (g *fakeGateway) createdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

type transitionKey struct {
	paymentID string
	status    domain.PaymentStatus
}

type fakeActivator struct {
	mu        sync.Mutex
	applied   map[transitionKey]bool
	last      map[string]domain.PaymentStatus
	calls     map[domain.TransitionAction]int
	outcomes  []domain.TransactionOutcome
	applyErr  error
	lookupErr error
}

func newFakeActivator() *fakeActivator {
	return &fakeActivator{
		applied: map[transitionKey]bool{},
		last:    map[string]domain.PaymentStatus{},
		calls:   map[domain.TransitionAction]int{},
	}
}

func (a *fakeActivator) IsAlreadyApplied(_ context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lookupErr != nil {
		return false, a.lookupErr
	}
	return a.applied[transitionKey{paymentID, status}], nil
}

func (a *fakeActivator) LastAppliedStatus(_ context.Context, paymentID string) (domain.PaymentStatus, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status, ok := a.last[paymentID]
	return status, ok, nil
}

func (a *fakeActivator) record(action domain.TransitionAction, outcome domain.TransactionOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[action]++
	if a.applyErr != nil {
		return a.applyErr
	}
	a.applied[transitionKey{outcome.PaymentID, outcome.Status}] = true
	a.last[outcome.PaymentID] = outcome.Status
	a.outcomes = append(a.outcomes, outcome)
	return nil
}

func (a *fakeActivator) Activate(_ context.Context, o domain.TransactionOutcome) error {
	return a.record(domain.ActionActivate, o)
}

func (a *fakeActivator) MarkPending(_ context.Context, o domain.TransactionOutcome) error {
	return a.record(domain.ActionMarkPending, o)
}

func (a *fakeActivator) Reject(_ context.Context, o domain.TransactionOutcome) error {
	return a.record(domain.ActionReject, o)
}

func (a *fakeActivator) Cancel(_ context.Context, o domain.TransactionOutcome) error {
	return a.record(domain.ActionCancel, o)
}

func (a *fakeActivator) totalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

func (a *fakeActivator) callsFor(action domain.TransitionAction) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[action]
}
