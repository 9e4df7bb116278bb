package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/platform/redis"
)

const claimScope = "transition"

// ClaimGuard serializes concurrent deliveries of the same transition across replicas.
type ClaimGuard struct {
	store redis.ClaimStore
	ttl   time.Duration
}

func NewClaimGuard(store redis.ClaimStore, ttl time.Duration) (*ClaimGuard, error) {
	if store == nil {
		return nil, errors.New("claim store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("claim ttl must be positive")
	}
	return &ClaimGuard{store: store, ttl: ttl}, nil
}

// Claim returns true when the caller now owns the transition.
func (g *ClaimGuard) Claim(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id is required")
	}
	set, err := g.store.SetNX(ctx, g.key(paymentID, status), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set claim key: %w", err)
	}
	return set, nil
}

// Release drops the claim so a redelivery can retry immediately.
func (g *ClaimGuard) Release(ctx context.Context, paymentID string, status domain.PaymentStatus) error {
	return g.store.Del(ctx, g.key(paymentID, status))
}

func (g *ClaimGuard) key(paymentID string, status domain.PaymentStatus) string {
	return g.store.ClaimKey(claimScope, paymentID, string(status))
}
