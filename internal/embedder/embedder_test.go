package embedder

import (
	"context"
	"math"
	"testing"

	"golang.org/x/time/rate"
)

func TestDeterministicIsDeterministic(t *testing.T) {
	fn := Deterministic(16)
	ctx := context.Background()

	v1, err := fn(ctx, "model-a", "hello world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	v2, err := fn(ctx, "model-a", "hello world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v1) != 16 {
		t.Fatalf("len(v1) = %d, want 16", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected identical vectors for identical (model, text), differ at %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestDeterministicVariesByModelAndText(t *testing.T) {
	fn := Deterministic(16)
	ctx := context.Background()

	base, _ := fn(ctx, "model-a", "hello")
	byModel, _ := fn(ctx, "model-b", "hello")
	byText, _ := fn(ctx, "model-a", "goodbye")

	if vectorsEqual(base, byModel) {
		t.Error("expected different models to produce different vectors")
	}
	if vectorsEqual(base, byText) {
		t.Error("expected different text to produce different vectors")
	}
}

func TestDeterministicUnitNorm(t *testing.T) {
	fn := Deterministic(32)
	v, err := fn(context.Background(), "m", "some text of reasonable length")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var sumSq float64
	for _, c := range v {
		sumSq += float64(c) * float64(c)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Errorf("norm = %v, want ~1.0", norm)
	}
}

func TestDeterministicRejectsNonPositiveDim(t *testing.T) {
	fn := Deterministic(0)
	if _, err := fn(context.Background(), "m", "x"); err == nil {
		t.Error("expected error for non-positive dimension")
	}
}

func TestThrottledAppliesRateLimit(t *testing.T) {
	calls := 0
	inner := func(ctx context.Context, model, text string) ([]float32, error) {
		calls++
		return []float32{1}, nil
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	throttled := Throttled(inner, limiter)

	if _, err := throttled(context.Background(), "m", "x"); err != nil {
		t.Fatalf("throttled call failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestThrottledPropagatesCancelledContext(t *testing.T) {
	inner := func(ctx context.Context, model, text string) ([]float32, error) {
		return []float32{1}, nil
	}
	limiter := rate.NewLimiter(0, 0)
	throttled := Throttled(inner, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := throttled(ctx, "m", "x"); err == nil {
		t.Error("expected error when limiter wait is cancelled")
	}
}

func vectorsEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
