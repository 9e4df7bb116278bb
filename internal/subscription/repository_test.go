package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaura/qaura-payments/internal/core/domain"
)

func TestApplyRecordsTransitionOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	applied, err := repo.Apply(ctx, outcomeFor("1001", domain.StatusApproved))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Apply(ctx, outcomeFor("1001", domain.StatusApproved))
	require.NoError(t, err)
	assert.False(t, applied)

	ok, err := repo.IsApplied(ctx, "1001", domain.StatusApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsApplied(ctx, "1001", domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	sub, err := repo.FindByPaymentID(ctx, "1001")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, StateActive, sub.State)
	assert.Equal(t, "profissional", sub.PlanID)
	assert.Equal(t, "197", sub.Amount.String())
	require.NotNil(t, sub.ActivatedAt)
	assert.Nil(t, sub.CancelledAt)
}

func TestApplyPendingThenApprovedUpdatesSubscription(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Apply(ctx, outcomeFor("2002", domain.StatusPending))
	require.NoError(t, err)

	last, found, err := repo.LastStatus(ctx, "2002")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.StatusPending, last)

	_, err = repo.Apply(ctx, outcomeFor("2002", domain.StatusApproved))
	require.NoError(t, err)

	last, _, err = repo.LastStatus(ctx, "2002")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, last)

	sub, err := repo.FindByPaymentID(ctx, "2002")
	require.NoError(t, err)
	assert.Equal(t, StateActive, sub.State)

	var transitions int64
	require.NoError(t, repo.db.DB().Model(&PaymentTransition{}).Where("payment_id = ?", "2002").Count(&transitions).Error)
	assert.Equal(t, int64(2), transitions)
}

func TestApplyKeepsTerminalStatus(t *testing.T) {
	for _, terminal := range []domain.PaymentStatus{domain.StatusApproved, domain.StatusRejected, domain.StatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			repo := newTestRepository(t)
			ctx := context.Background()

			_, err := repo.Apply(ctx, outcomeFor("3003", terminal))
			require.NoError(t, err)

			applied, err := repo.Apply(ctx, outcomeFor("3003", domain.StatusPending))
			assert.ErrorIs(t, err, domain.ErrTerminalStatus)
			assert.False(t, applied)

			last, _, err := repo.LastStatus(ctx, "3003")
			require.NoError(t, err)
			assert.Equal(t, terminal, last)

			ok, err := repo.IsApplied(ctx, "3003", domain.StatusPending)
			require.NoError(t, err)
			assert.False(t, ok, "rejected transition must roll back")
		})
	}
}

func TestLastStatusUnknownPayment(t *testing.T) {
	repo := newTestRepository(t)

	_, found, err := repo.LastStatus(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}
