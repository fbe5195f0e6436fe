package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"golang.org/x/time/rate"
)

// Limiter throttles outbound calls per key. Keys are hosts for HTTP
// requests and provider names for model calls.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter. A non-positive rate disables throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a call for key is allowed
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l == nil {
		return ctx.Err()
	}
	return l.get(key).Wait(ctx)
}

// WaitURL waits on the host of rawURL
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	host, err := hostKey(rawURL)
	if err != nil {
		return err
	}
	return l.Wait(ctx, host)
}

// WaitURLWithDelay waits on the host of rawURL and then honours an extra
// delay, typically a robots.txt crawl-delay
func (l *Limiter) WaitURLWithDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if err := l.WaitURL(ctx, rawURL); err != nil {
		return err
	}
	return sleepContext(ctx, delay)
}

// Allow reports whether a call for key may proceed now
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).Allow()
}

// SetRate overrides the limit of one key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter
	return limiter
}

// RateLimited returns a Verifier that waits on limiter under key before
// every call to next
func RateLimited(next Verifier, limiter *Limiter, key string) Verifier {
	return VerifierFunc(func(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
		if err := limiter.Wait(ctx, key); err != nil {
			return model.VerificationOutcome{}, err
		}
		return next.Verify(ctx, claim)
	})
}

func hostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}
