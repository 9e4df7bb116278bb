package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/platform/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo, err := NewRepository(database.NewFromConn(conn))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func outcomeFor(paymentID string, status domain.PaymentStatus) domain.TransactionOutcome {
	return domain.TransactionOutcome{
		PaymentID:         paymentID,
		PlanID:            "profissional",
		Status:            status,
		Amount:            decimal.RequireFromString("197.00"),
		PayerEmail:        "aluno@example.com",
		ExternalReference: "plan_profissional_1712345678901",
		ResolvedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type inMemoryClaimStore struct {
	mu     sync.Mutex
	keys   map[string]struct{}
	setErr error
	dels   int
}

func newInMemoryClaimStore() *inMemoryClaimStore {
	return &inMemoryClaimStore{keys: map[string]struct{}{}}
}

func (s *inMemoryClaimStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *inMemoryClaimStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.keys, k)
	}
	s.dels++
	return nil
}

func (s *inMemoryClaimStore) ClaimKey(scope string, parts ...string) string {
	return strings.Join(append([]string{"test", scope}, parts...), ":")
}

func (s *inMemoryClaimStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *inMemoryClaimStore) expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []domain.TransactionOutcome
	err      error
}

func (n *recordingNotifier) NotifyTransition(_ context.Context, outcome domain.TransactionOutcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.outcomes)
}

var errBoom = errors.New("boom")
