package provider

import (
	"context"
	"testing"
	"time"
)

func TestIntervalLimiter_SpacesCallStarts(t *testing.T) {
	limiter := NewIntervalLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First call is immediate, the next two wait 50ms each.
	if elapsed < 100*time.Millisecond {
		t.Errorf("3 calls completed in %v, expected at least 100ms", elapsed)
	}
}

func TestIntervalLimiter_FirstCallImmediate(t *testing.T) {
	limiter := NewIntervalLimiter(time.Second)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call waited %v, expected immediate", elapsed)
	}
}

func TestIntervalLimiter_ContextCancellation(t *testing.T) {
	limiter := NewIntervalLimiter(time.Minute)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error while waiting")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestNewIntervalLimiter_DefaultInterval(t *testing.T) {
	limiter := NewIntervalLimiter(0)
	if limiter.Interval() != DefaultMinInterval {
		t.Errorf("expected default interval %v, got %v", DefaultMinInterval, limiter.Interval())
	}
}
