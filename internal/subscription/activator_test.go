package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

func newTestActivator(t *testing.T, store *inMemoryClaimStore, notifier *recordingNotifier) (*Activator, *Repository) {
	t.Helper()
	repo := newTestRepository(t)
	params := ActivatorParams{Repository: repo}
	if notifier != nil {
		params.Notifier = notifier
	}
	if store != nil {
		claims, err := NewClaimGuard(store, 30*time.Second)
		require.NoError(t, err)
		params.Claims = claims
	}
	act, err := NewActivator(params)
	require.NoError(t, err)
	return act, repo
}

func TestActivateNotifiesOnce(t *testing.T) {
	notifier := &recordingNotifier{}
	act, _ := newTestActivator(t, newInMemoryClaimStore(), notifier)
	ctx := context.Background()

	require.NoError(t, act.Activate(ctx, outcomeFor("1001", domain.StatusApproved)))
	assert.ErrorIs(t, act.Activate(ctx, outcomeFor("1001", domain.StatusApproved)), domain.ErrTransitionAlreadyApplied)

	assert.Equal(t, 1, notifier.count())
	applied, err := act.IsAlreadyApplied(ctx, "1001", domain.StatusApproved)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestApplyRejectsMismatchedStatus(t *testing.T) {
	act, _ := newTestActivator(t, nil, nil)

	err := act.Activate(context.Background(), outcomeFor("1001", domain.StatusRejected))
	assert.Error(t, err)
}

func TestStaleClaimIsTransientUntilExpiry(t *testing.T) {
	store := newInMemoryClaimStore()
	notifier := &recordingNotifier{}
	act, _ := newTestActivator(t, store, notifier)
	ctx := context.Background()
	key := store.ClaimKey(claimScope, "5005", "approved")

	// A crashed attempt left its claim behind without recording the transition.
	_, err := store.SetNX(ctx, key, "1", time.Minute)
	require.NoError(t, err)

	err = act.Activate(ctx, outcomeFor("5005", domain.StatusApproved))
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)
	assert.Zero(t, notifier.count())

	store.expire(key)
	require.NoError(t, act.Activate(ctx, outcomeFor("5005", domain.StatusApproved)))
	assert.ErrorIs(t, act.Activate(ctx, outcomeFor("5005", domain.StatusApproved)), domain.ErrTransitionAlreadyApplied)
	assert.Equal(t, 1, notifier.count())
}

func TestLostClaimOnRecordedTransitionIsDuplicate(t *testing.T) {
	store := newInMemoryClaimStore()
	notifier := &recordingNotifier{}
	act, _ := newTestActivator(t, store, notifier)
	ctx := context.Background()

	require.NoError(t, act.Activate(ctx, outcomeFor("5105", domain.StatusApproved)))
	_, err := store.SetNX(ctx, store.ClaimKey(claimScope, "5105", "approved"), "1", time.Minute)
	require.NoError(t, err)

	err = act.Activate(ctx, outcomeFor("5105", domain.StatusApproved))
	assert.ErrorIs(t, err, domain.ErrTransitionAlreadyApplied)
	assert.Equal(t, 1, notifier.count())
}

func TestTransitionCannotLeaveTerminalStatus(t *testing.T) {
	store := newInMemoryClaimStore()
	notifier := &recordingNotifier{}
	act, repo := newTestActivator(t, store, notifier)
	ctx := context.Background()

	require.NoError(t, act.Activate(ctx, outcomeFor("5205", domain.StatusApproved)))

	err := act.MarkPending(ctx, outcomeFor("5205", domain.StatusPending))
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)
	err = act.Reject(ctx, outcomeFor("5205", domain.StatusRejected))
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)

	assert.Equal(t, 1, notifier.count())
	assert.False(t, store.has(store.ClaimKey(claimScope, "5205", "pending")))

	sub, err := repo.FindByPaymentID(ctx, "5205")
	require.NoError(t, err)
	assert.Equal(t, StateActive, sub.State)
	assert.Equal(t, string(domain.StatusApproved), sub.PaymentStatus)
}

func TestClaimReleasedWhenStoreFails(t *testing.T) {
	store := newInMemoryClaimStore()
	act, repo := newTestActivator(t, store, nil)
	ctx := context.Background()

	sqlDB, err := repo.db.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = act.Cancel(ctx, outcomeFor("6006", domain.StatusCancelled))
	require.Error(t, err)
	assert.False(t, store.has(store.ClaimKey(claimScope, "6006", "cancelled")))
	assert.Equal(t, 1, store.dels)
}

func TestClaimStoreOutageFallsBackToDatabase(t *testing.T) {
	store := newInMemoryClaimStore()
	store.setErr = errBoom
	notifier := &recordingNotifier{}
	act, _ := newTestActivator(t, store, notifier)

	require.NoError(t, act.MarkPending(context.Background(), outcomeFor("7007", domain.StatusPending)))
	assert.ErrorIs(t, act.MarkPending(context.Background(), outcomeFor("7007", domain.StatusPending)), domain.ErrTransitionAlreadyApplied)
	assert.Equal(t, 1, notifier.count())
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	notifier := &recordingNotifier{err: errBoom}
	act, _ := newTestActivator(t, nil, notifier)

	require.NoError(t, act.Reject(context.Background(), outcomeFor("8008", domain.StatusRejected)))

	last, found, err := act.LastAppliedStatus(context.Background(), "8008")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.StatusRejected, last)
}

func TestConcurrentDuplicateDeliveriesApplyOnce(t *testing.T) {
	for _, withClaims := range []bool{true, false} {
		name := "database only"
		if withClaims {
			name = "with claims"
		}
		t.Run(name, func(t *testing.T) {
			var store *inMemoryClaimStore
			if withClaims {
				store = newInMemoryClaimStore()
			}
			notifier := &recordingNotifier{}
			act, _ := newTestActivator(t, store, notifier)

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = act.Activate(context.Background(), outcomeFor("9009", domain.StatusApproved))
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, notifier.count())
		})
	}
}
