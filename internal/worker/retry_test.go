package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

var testClaim = model.Claim{ID: "c1", Text: "Water boils at 100C at sea level", Type: model.ClaimTypeFact, Importance: 5}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestRetryingVerifier_SuccessFirstAttempt(t *testing.T) {
	var calls int32
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		atomic.AddInt32(&calls, 1)
		return model.VerificationOutcome{ClaimID: c.ID, Status: model.StatusSupported, Explanation: "ok"}, nil
	})

	r := NewRetryingVerifier(next, RetryPolicy{Timeout: time.Second, Retries: 2}, nil)
	got := r.Settle(context.Background(), testClaim)

	if got.Status != model.StatusSupported || got.Explanation != "ok" {
		t.Errorf("unexpected outcome: %+v", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryingVerifier_ExhaustsRetries(t *testing.T) {
	var calls int32
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		n := atomic.AddInt32(&calls, 1)
		return model.VerificationOutcome{}, fmt.Errorf("boom %d", n)
	})

	r := NewRetryingVerifier(next, RetryPolicy{Timeout: time.Second, Retries: 2}, nil)
	r.sleep = noSleep

	got := r.Settle(context.Background(), testClaim)

	if calls != 3 {
		t.Errorf("expected 3 attempts for 2 retries, got %d", calls)
	}
	if got.Status != model.StatusUnverified {
		t.Errorf("expected unverified, got %s", got.Status)
	}
	if got.ClaimID != testClaim.ID {
		t.Errorf("expected claim id %s, got %s", testClaim.ID, got.ClaimID)
	}
	if !strings.Contains(got.Explanation, "after 3 attempts") || !strings.Contains(got.Explanation, "boom 3") {
		t.Errorf("explanation should carry attempt count and last error, got %q", got.Explanation)
	}
	if len(got.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(got.Sources))
	}
}

func TestRetryingVerifier_RecoversOnLaterAttempt(t *testing.T) {
	var calls int32
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return model.VerificationOutcome{}, errors.New("transient")
		}
		return model.VerificationOutcome{ClaimID: c.ID, Status: model.StatusMixed}, nil
	})

	r := NewRetryingVerifier(next, RetryPolicy{Timeout: time.Second, Retries: 2}, nil)
	r.sleep = noSleep

	got := r.Settle(context.Background(), testClaim)
	if got.Status != model.StatusMixed {
		t.Errorf("expected provider outcome after recovery, got %+v", got)
	}
}

func TestRetryingVerifier_BackoffDoubles(t *testing.T) {
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		return model.VerificationOutcome{}, errors.New("down")
	})

	var mu sync.Mutex
	var waits []time.Duration
	r := NewRetryingVerifier(next, RetryPolicy{Timeout: time.Second, Retries: 3, BaseDelay: 800 * time.Millisecond}, nil)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return nil
	}

	r.Settle(context.Background(), testClaim)

	want := []time.Duration{800 * time.Millisecond, 1600 * time.Millisecond, 3200 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], waits[i])
		}
	}
}

func TestRetryingVerifier_Timeout(t *testing.T) {
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		<-ctx.Done()
		return model.VerificationOutcome{}, ctx.Err()
	})

	r := NewRetryingVerifier(next, RetryPolicy{Timeout: 20 * time.Millisecond, Retries: 0}, nil)

	start := time.Now()
	got := r.Settle(context.Background(), testClaim)

	if got.Status != model.StatusUnverified {
		t.Errorf("expected unverified, got %s", got.Status)
	}
	if !strings.Contains(got.Explanation, ErrTimeout.Error()) {
		t.Errorf("expected timeout in explanation, got %q", got.Explanation)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout did not cut the attempt short")
	}
}

func TestRetryingVerifier_CancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	next := VerifierFunc(func(ctx context.Context, c model.Claim) (model.VerificationOutcome, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return model.VerificationOutcome{}, errors.New("fail")
	})

	r := NewRetryingVerifier(next, RetryPolicy{Timeout: time.Second, Retries: 5, BaseDelay: time.Millisecond}, nil)
	got := r.Settle(ctx, testClaim)

	if calls != 1 {
		t.Errorf("expected no retries after cancellation, got %d calls", calls)
	}
	if got.Status != model.StatusUnverified || !strings.Contains(got.Explanation, "cancelled") {
		t.Errorf("expected cancelled unverified outcome, got %+v", got)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
