package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

// Retry defaults
const (
	DefaultTimeout   = 45 * time.Second
	DefaultBaseDelay = 800 * time.Millisecond
)

// ErrTimeout is returned for an attempt that did not settle before its timer
var ErrTimeout = errors.New("verification timed out")

// Verifier performs one verification call against a provider
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error)
}

// VerifierFunc adapts a function to the Verifier interface
type VerifierFunc func(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error)

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	return f(ctx, claim)
}

// RetryPolicy configures a RetryingVerifier
type RetryPolicy struct {
	Timeout   time.Duration // Per attempt
	Retries   int           // Attempts allowed after the first failure
	BaseDelay time.Duration // Backoff before retry n is BaseDelay * 2^(n-1)
}

// RetryingVerifier wraps a Verifier with a per-attempt timeout and
// exponential backoff. It always settles: failures that exhaust the retry
// budget become a synthetic unverified outcome instead of an error.
type RetryingVerifier struct {
	next   Verifier
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingVerifier creates a retrying verifier around next
func NewRetryingVerifier(next Verifier, policy RetryPolicy, logger *slog.Logger) *RetryingVerifier {
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultTimeout
	}
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &RetryingVerifier{
		next:   next,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Settle verifies one claim and returns its terminal outcome.
// A successful provider outcome is returned unchanged.
func (r *RetryingVerifier) Settle(ctx context.Context, claim model.Claim) model.VerificationOutcome {
	var lastErr error
	attempts := 0

	for {
		attempts++
		outcome, err := r.attempt(ctx, claim)
		if err == nil {
			verificationOutcomes.WithLabelValues(string(outcome.Status)).Inc()
			return outcome
		}
		lastErr = err

		if ctx.Err() != nil {
			return r.giveUp(claim, fmt.Sprintf("Verification cancelled: %v", lastErr))
		}
		if attempts > r.policy.Retries {
			break
		}

		backoff := r.policy.BaseDelay * time.Duration(1<<uint(attempts-1))
		r.logger.Warn("verification attempt failed, retrying",
			"claim_id", claim.ID,
			"attempt", attempts,
			"backoff", backoff,
			"error", err)
		verificationRetries.Inc()

		if err := r.sleep(ctx, backoff); err != nil {
			return r.giveUp(claim, fmt.Sprintf("Verification cancelled: %v", lastErr))
		}
	}

	r.logger.Warn("verification exhausted retries",
		"claim_id", claim.ID,
		"attempts", attempts,
		"error", lastErr)
	return r.giveUp(claim, fmt.Sprintf("Verification failed after %d attempts: %v", attempts, lastErr))
}

func (r *RetryingVerifier) giveUp(claim model.Claim, explanation string) model.VerificationOutcome {
	verificationOutcomes.WithLabelValues(string(model.StatusUnverified)).Inc()
	return model.Unverified(claim.ID, explanation)
}

// attempt races one provider call against the attempt timer
func (r *RetryingVerifier) attempt(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	start := time.Now()
	defer func() { verificationAttemptDuration.Observe(time.Since(start).Seconds()) }()

	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	type result struct {
		outcome model.VerificationOutcome
		err     error
	}
	// Buffered so an abandoned call can still deliver and exit
	done := make(chan result, 1)
	go func() {
		outcome, err := r.next.Verify(attemptCtx, claim)
		done <- result{outcome: outcome, err: err}
	}()

	timer := time.NewTimer(r.policy.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err == nil {
			verificationAttempts.WithLabelValues("success").Inc()
			return res.outcome, nil
		}
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			verificationAttempts.WithLabelValues("timeout").Inc()
			return model.VerificationOutcome{}, fmt.Errorf("%w after %s", ErrTimeout, r.policy.Timeout)
		}
		verificationAttempts.WithLabelValues("error").Inc()
		return model.VerificationOutcome{}, res.err
	case <-timer.C:
		verificationAttempts.WithLabelValues("timeout").Inc()
		return model.VerificationOutcome{}, fmt.Errorf("%w after %s", ErrTimeout, r.policy.Timeout)
	case <-ctx.Done():
		verificationAttempts.WithLabelValues("cancelled").Inc()
		return model.VerificationOutcome{}, ctx.Err()
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
