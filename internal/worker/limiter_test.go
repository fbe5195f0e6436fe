package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 50; i++ {
		if !limiter.Allow("gemini") {
			t.Fatalf("call %d throttled with rate disabled", i)
		}
	}
}

func TestLimiter_WaitURL(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.WaitURL(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.WaitURL(ctx, "http://google.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.WaitURL(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_WaitURLWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitURLWithDelay(context.Background(), "http://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitURLWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if err := limiter.Wait(context.Background(), "gemini"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	if limiter.Allow("gemini") {
		t.Error("expected allow to fail with exhausted tokens")
	}
	if !limiter.Allow("openai") {
		t.Error("expected other key to be allowed")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("slow.com", 0.1, 1)

	if !limiter.Allow("slow.com") {
		t.Error("first request should pass")
	}
	if limiter.Allow("slow.com") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("fast.com") {
		t.Error("other key should pass")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow("k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "k"); err == nil {
		t.Error("expected error from cancelled wait")
	}
}

func TestRateLimited(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	calls := 0
	v := RateLimited(VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		calls++
		return model.VerificationOutcome{ClaimID: c.ID, Status: model.StatusSupported}, nil
	}), limiter, "gemini")

	if _, err := v.Verify(context.Background(), testClaim); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, testClaim)
	if err == nil {
		t.Fatal("expected throttled call to fail when context expires")
	}
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestHostKey(t *testing.T) {
	host, err := hostKey("http://example.com/foo")
	if err != nil {
		t.Fatalf("hostKey failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := hostKey("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
