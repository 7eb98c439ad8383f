package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Allow_PerKeyIsolation(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, Burst: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("anthropic") {
			t.Errorf("anthropic request %d should be allowed", i)
		}
	}
	if limiter.Allow("anthropic") {
		t.Error("anthropic should be rate limited after burst exhausted")
	}

	// A different provider key has its own independent bucket.
	if !limiter.Allow("openai") {
		t.Error("openai should be allowed on its own bucket")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1, Enabled: false})

	for i := 0; i < 50; i++ {
		if !limiter.Allow("anthropic") {
			t.Error("disabled limiter should always allow")
		}
	}
}

func TestLimiter_Wait_BlocksUntilAdmitted(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 100, Burst: 1, Enabled: true})

	if !limiter.Allow("bedrock") {
		t.Fatal("first request should be admitted immediately")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx, "bedrock"); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if time.Since(start) <= 0 {
		t.Error("Wait should block at least briefly once burst is exhausted")
	}
}

func TestLimiter_Wait_DisabledReturnsImmediately(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1, Enabled: false})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Even with an already-cancelled context, a disabled limiter never checks it.
	if err := limiter.Wait(ctx, "anthropic"); err != nil {
		t.Fatalf("disabled limiter should not error on a cancelled context: %v", err)
	}
}

func TestLimiter_ZeroConfig_UsesDefaults(t *testing.T) {
	limiter := NewLimiter(Config{Enabled: true})
	if !limiter.Allow("anthropic") {
		t.Error("Allow() should succeed on a zero-config limiter with defaults applied")
	}
}
