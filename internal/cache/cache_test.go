package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("gemini", "m", "The  Moon is made of Rock.")
	b := Key("gemini", "m", "the moon is made of rock.")
	if a != b {
		t.Error("keys should ignore case and repeated whitespace")
	}
	if a == Key("openai", "m", "the moon is made of rock.") {
		t.Error("keys should differ per provider")
	}
	if a == Key("gemini", "other", "the moon is made of rock.") {
		t.Error("keys should differ per model")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	outcome := model.VerificationOutcome{
		ClaimID: "c1",
		Status:  model.StatusSupported,
		Sources: []model.SourceEvidence{{Title: "A", URI: "https://a.example"}},
	}
	s.Set("k", outcome, 0)

	got, ok := s.Get("k")
	if !ok || got.Status != model.StatusSupported {
		t.Fatalf("expected stored outcome, got %+v (%v)", got, ok)
	}

	got.Sources[0].Title = "mutated"
	again, _ := s.Get("k")
	if again.Sources[0].Title != "A" {
		t.Error("stored outcome should not share memory with callers")
	}

	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("expected entry to be deleted")
	}

	s.Set("a", outcome, 0)
	s.Set("b", outcome, 0)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty store after Clear, got %d", s.Len())
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	s.Set("k", model.VerificationOutcome{Status: model.StatusMixed}, 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

type countingVerifier struct {
	calls int32
	delay time.Duration
	err   error
}

func (c *countingVerifier) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return model.VerificationOutcome{}, c.err
	}
	return model.VerificationOutcome{ClaimID: claim.ID, Status: model.StatusContradicted, Explanation: "checked", Sources: []model.SourceEvidence{}}, nil
}

func TestVerifier_CachesSuccess(t *testing.T) {
	next := &countingVerifier{}
	v := NewVerifier(next, NewMemoryStore(time.Minute, time.Minute), time.Minute, "gemini", "m")

	first, err := v.Verify(context.Background(), model.Claim{ID: "c1", Text: "Same claim"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	second, err := v.Verify(context.Background(), model.Claim{ID: "c7", Text: "same   CLAIM"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if next.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", next.calls)
	}
	if first.ClaimID != "c1" || second.ClaimID != "c7" {
		t.Errorf("cached outcome should carry the caller's claim id, got %s and %s", first.ClaimID, second.ClaimID)
	}
	if second.Status != model.StatusContradicted {
		t.Errorf("unexpected cached status %s", second.Status)
	}
}

func TestVerifier_DoesNotCacheErrors(t *testing.T) {
	next := &countingVerifier{err: errors.New("quota")}
	v := NewVerifier(next, NewMemoryStore(time.Minute, time.Minute), time.Minute, "gemini", "m")

	for i := 0; i < 2; i++ {
		if _, err := v.Verify(context.Background(), model.Claim{ID: "c1", Text: "x"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Errorf("errors must not be cached, got %d calls", next.calls)
	}
}

func TestVerifier_CoalescesConcurrentCalls(t *testing.T) {
	next := &countingVerifier{delay: 50 * time.Millisecond}
	v := NewVerifier(next, NewMemoryStore(time.Minute, time.Minute), time.Minute, "gemini", "m")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Verify(context.Background(), model.Claim{ID: "c1", Text: "shared"}); err != nil {
				t.Errorf("Verify failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if next.calls != 1 {
		t.Errorf("expected concurrent calls to be coalesced, got %d", next.calls)
	}
}

func TestVerifier_ContextCancelled(t *testing.T) {
	next := &countingVerifier{delay: 200 * time.Millisecond}
	v := NewVerifier(next, NewMemoryStore(time.Minute, time.Minute), time.Minute, "gemini", "m")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := v.Verify(ctx, model.Claim{ID: "c1", Text: "slow"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// blockingVerifier waits for release or for its context to end
type blockingVerifier struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingVerifier) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return model.VerificationOutcome{ClaimID: claim.ID, Status: model.StatusSupported}, nil
	case <-ctx.Done():
		return model.VerificationOutcome{}, ctx.Err()
	}
}

func TestVerifier_SharedCallOutlivesCancelledCaller(t *testing.T) {
	next := &blockingVerifier{started: make(chan struct{}), release: make(chan struct{})}
	v := NewVerifier(next, NewMemoryStore(time.Minute, time.Minute), time.Minute, "gemini", "m")
	v.SetFlightTimeout(5 * time.Second)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := v.Verify(firstCtx, model.Claim{ID: "c1", Text: "shared text"})
		firstErr <- err
	}()
	<-next.started

	type result struct {
		outcome model.VerificationOutcome
		err     error
	}
	second := make(chan result, 1)
	go func() {
		o, err := v.Verify(context.Background(), model.Claim{ID: "c2", Text: "shared text"})
		second <- result{o, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("expected the first caller to see its own cancellation, got %v", err)
	}

	close(next.release)
	res := <-second
	if res.err != nil {
		t.Fatalf("second caller should not inherit the first caller's cancellation: %v", res.err)
	}
	if res.outcome.ClaimID != "c2" || res.outcome.Status != model.StatusSupported {
		t.Errorf("unexpected outcome %+v", res.outcome)
	}
	if got := atomic.LoadInt32(&next.calls); got != 1 {
		t.Errorf("expected 1 provider call, got %d", got)
	}
}
