package reference

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// NonceSource issues nonces that strictly increase within the process.
// The random suffix keeps nonces from different replicas apart.
type NonceSource struct {
	last atomic.Int64
	now  func() time.Time
	rand func() string
}

// NewNonceSource returns a NonceSource backed by the wall clock.
func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now, rand: randomSuffix}
}

// Next returns <millis>-<suffix>, where millis is max(now, previous+1).
func (s *NonceSource) Next() string {
	now := s.now().UnixMilli()
	for {
		prev := s.last.Load()
		next := now
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10) + "-" + s.rand()
		}
	}
}

// NewReference encodes planID with a fresh nonce.
func (s *NonceSource) NewReference(planID string) string {
	return Encode(planID, s.Next())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
