package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/platform/logger"
	"github.com/qaura/qaura-payments/internal/platform/metrics"
)

// Activator implements ports.SubscriptionActivator on top of the repository.
// Claims are optional; without them the transitions table's unique key is the
// only check-and-set. A transition recorded by another delivery yields
// domain.ErrTransitionAlreadyApplied, and one that would leave a terminal
// status yields domain.ErrTerminalStatus.
type Activator struct {
	repo     *Repository
	claims   *ClaimGuard
	notifier ports.Notifier
	log      *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// ActivatorParams wires an Activator.
type ActivatorParams struct {
	Repository *Repository
	Claims     *ClaimGuard
	Notifier   ports.Notifier
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
}

func NewActivator(p ActivatorParams) (*Activator, error) {
	if p.Repository == nil {
		return nil, errors.New("subscription repository required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Activator{
		repo:     p.Repository,
		claims:   p.Claims,
		notifier: p.Notifier,
		log:      p.Logger,
		metrics:  p.Metrics,
	}, nil
}

func (a *Activator) IsAlreadyApplied(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	return a.repo.IsApplied(ctx, paymentID, status)
}

func (a *Activator) LastAppliedStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool, error) {
	return a.repo.LastStatus(ctx, paymentID)
}

func (a *Activator) Activate(ctx context.Context, outcome domain.TransactionOutcome) error {
	return a.apply(ctx, domain.StatusApproved, outcome)
}

func (a *Activator) MarkPending(ctx context.Context, outcome domain.TransactionOutcome) error {
	return a.apply(ctx, domain.StatusPending, outcome)
}

func (a *Activator) Reject(ctx context.Context, outcome domain.TransactionOutcome) error {
	return a.apply(ctx, domain.StatusRejected, outcome)
}

func (a *Activator) Cancel(ctx context.Context, outcome domain.TransactionOutcome) error {
	return a.apply(ctx, domain.StatusCancelled, outcome)
}

func (a *Activator) apply(ctx context.Context, want domain.PaymentStatus, outcome domain.TransactionOutcome) error {
	if outcome.Status != want {
		return fmt.Errorf("outcome status %q does not match %q transition", outcome.Status, want)
	}
	if outcome.PaymentID == "" {
		return errors.New("outcome payment id is required")
	}

	ctx = a.log.WithFields(ctx, map[string]any{
		"status":  outcome.Status,
		"plan_id": outcome.PlanID,
	})

	claimed := false
	if a.claims != nil {
		won, err := a.claims.Claim(ctx, outcome.PaymentID, outcome.Status)
		switch {
		case err != nil:
			a.log.Warn(a.log.WithField(ctx, "error", err.Error()), "subscription.claim_unavailable")
		case !won:
			applied, err := a.repo.IsApplied(ctx, outcome.PaymentID, outcome.Status)
			if err != nil {
				return err
			}
			if applied {
				return domain.ErrTransitionAlreadyApplied
			}
			return domain.ErrTransitionInFlight
		default:
			claimed = true
		}
	}

	applied, err := a.repo.Apply(ctx, outcome)
	if err != nil {
		if claimed {
			if relErr := a.claims.Release(ctx, outcome.PaymentID, outcome.Status); relErr != nil {
				a.log.Error(ctx, "subscription.claim_release_failed", relErr)
			}
		}
		return err
	}
	if !applied {
		a.log.Info(ctx, "subscription.transition_already_recorded")
		return domain.ErrTransitionAlreadyApplied
	}

	a.metrics.IncTransition(string(outcome.Status))
	a.log.Info(a.log.WithField(ctx, "state", stateFor(outcome.Status)), "subscription.transition_applied")

	if a.notifier != nil {
		if err := a.notifier.NotifyTransition(ctx, outcome); err != nil {
			a.log.Error(ctx, "subscription.notify_failed", err)
		}
	}
	return nil
}
