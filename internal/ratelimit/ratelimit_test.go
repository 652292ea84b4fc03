package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkit/memoryd/internal/config"
)

func slidingCfg() config.RateLimiterConfig {
	return config.RateLimiterConfig{
		MaxRequests: 3,
		WindowMS:    50,
		Strategy:    "sliding",
		KeyPrefix:   "test",
		TTL:         time.Minute,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := slidingCfg()
	cfg.MaxRequests = 0
	if _, err := New(cfg); err == nil {
		t.Error("expected New to reject max_requests <= 0")
	}
}

func TestSlidingWindowAdmitsUpToLimit(t *testing.T) {
	l, err := New(slidingCfg())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d := l.Check("k1")
		assert.Truef(t, d.Allowed, "request %d denied, want allowed", i)
	}
	d := l.Check("k1")
	assert.False(t, d.Allowed, "expected 4th request within window to be denied")
	assert.NotNil(t, d.RetryAfterS, "expected RetryAfterS to be set on a denial")
}

func TestSlidingWindowAdmitsAfterExpiry(t *testing.T) {
	l, err := New(slidingCfg())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		l.Check("k1")
	}
	if l.Check("k1").Allowed {
		t.Fatal("expected denial before window elapses")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Check("k1").Allowed {
		t.Error("expected a fresh window to admit again")
	}
}

func TestFixedWindowAdmitsUpToLimit(t *testing.T) {
	cfg := slidingCfg()
	cfg.Strategy = "fixed"
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !l.Check("k1").Allowed {
			t.Fatalf("request %d denied, want allowed", i)
		}
	}
	if l.Check("k1").Allowed {
		t.Error("expected 4th request in the same epoch to be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, err := New(slidingCfg())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		l.Check("a")
	}
	if !l.Check("b").Allowed {
		t.Error("expected an unrelated key to have its own budget")
	}
}

func TestGetStateDoesNotMutate(t *testing.T) {
	l, err := New(slidingCfg())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Check("k1")
	before := l.GetState("k1")
	after := l.GetState("k1")
	if before.Remaining != after.Remaining {
		t.Errorf("GetState mutated remaining count: %d then %d", before.Remaining, after.Remaining)
	}
	if before.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2 after one Check out of 3", before.Remaining)
	}
}

func TestResetClearsKey(t *testing.T) {
	l, err := New(slidingCfg())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		l.Check("k1")
	}
	l.Reset("k1")
	if !l.Check("k1").Allowed {
		t.Error("expected Reset to clear prior admissions")
	}
}

func TestClearDropsAllKeys(t *testing.T) {
	l, err := New(slidingCfg())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		l.Check("a")
		l.Check("b")
	}
	l.Clear()
	if !l.Check("a").Allowed || !l.Check("b").Allowed {
		t.Error("expected Clear to reset every key")
	}
}

func TestCleanupEvictsIdleKeys(t *testing.T) {
	cfg := slidingCfg()
	cfg.TTL = 10 * time.Millisecond
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Check("k1")
	time.Sleep(20 * time.Millisecond)

	n := l.Cleanup()
	if n != 1 {
		t.Errorf("Cleanup() evicted %d, want 1", n)
	}
}
