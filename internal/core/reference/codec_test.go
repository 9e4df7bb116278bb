package reference

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := NewNonceSource()
	for _, plan := range []string{"pro", "basic", "qaura-plan", "Plano-Profissional"} {
		ref := src.NewReference(plan)
		got, ok := Decode(ref)
		require.True(t, ok, ref)
		assert.Equal(t, plan, got)
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		ref  string
		plan string
		ok   bool
	}{
		{name: "legacy digits", ref: "plan_pro_1712345678901", plan: "pro", ok: true},
		{name: "nonce with suffix", ref: "plan_pro_1712345678901-a1b2c3d4", plan: "pro", ok: true},
		{name: "foreign", ref: "order-123", ok: false},
		{name: "empty", ref: "", ok: false},
		{name: "missing nonce", ref: "plan_pro_", ok: false},
		{name: "missing plan", ref: "plan__123", ok: false},
		{name: "non numeric nonce", ref: "plan_pro_abc", ok: false},
		{name: "wrong prefix", ref: "plano_pro_123", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, ok := Decode(tc.ref)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.plan, plan)
		})
	}
}

func TestValidPlanID(t *testing.T) {
	assert.True(t, ValidPlanID("pro"))
	assert.False(t, ValidPlanID(""))
	assert.False(t, ValidPlanID("pro_annual"))
}

func TestNonceSourceStrictlyIncreasesOnFrozenClock(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	src := &NonceSource{now: func() time.Time { return frozen }, rand: func() string { return "deadbeef" }}

	assert.Equal(t, "1700000000000-deadbeef", src.Next())
	assert.Equal(t, "1700000000001-deadbeef", src.Next())
	assert.Equal(t, "1700000000002-deadbeef", src.Next())
}

func TestNonceSourceConcurrentUnique(t *testing.T) {
	src := NewNonceSource()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ref := src.NewReference("pro")
				mu.Lock()
				seen[ref] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
