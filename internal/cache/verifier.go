package cache

import (
	"context"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// lookups counts cache lookups.
// Labels: result (hit, miss, shared)
var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "faultline",
	Subsystem: "cache",
	Name:      "lookups_total",
	Help:      "Verification cache lookups by result",
}, []string{"result"})

// DefaultFlightTimeout bounds a shared provider call when none is set
const DefaultFlightTimeout = 60 * time.Second

// ClaimVerifier is the provider call being cached
type ClaimVerifier interface {
	Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error)
}

// Verifier serves repeated claims from a Store and coalesces concurrent
// identical calls. Only successful outcomes are stored.
type Verifier struct {
	next      ClaimVerifier
	store     Store
	ttl       time.Duration
	provider  string
	modelName string
	flight    time.Duration
	group     singleflight.Group
}

// NewVerifier wraps next. provider and modelName scope the cache keys.
func NewVerifier(next ClaimVerifier, store Store, ttl time.Duration, provider, modelName string) *Verifier {
	return &Verifier{
		next:      next,
		store:     store,
		ttl:       ttl,
		provider:  provider,
		modelName: modelName,
		flight:    DefaultFlightTimeout,
	}
}

// SetFlightTimeout bounds each shared provider call. Callers that give up
// earlier leave the call running for the others waiting on it.
func (v *Verifier) SetFlightTimeout(d time.Duration) {
	if d > 0 {
		v.flight = d
	}
}

// Verify returns a cached outcome for claim or calls through
func (v *Verifier) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	key := Key(v.provider, v.modelName, claim.Text)

	if outcome, ok := v.store.Get(key); ok {
		lookups.WithLabelValues("hit").Inc()
		outcome.ClaimID = claim.ID
		return outcome, nil
	}

	ch := v.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between Get and DoChan already stored it
		if outcome, ok := v.store.Get(key); ok {
			return outcome, nil
		}
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.flight)
		defer cancel()

		outcome, err := v.next.Verify(flightCtx, claim)
		if err != nil {
			return nil, err
		}
		v.store.Set(key, outcome, v.ttl)
		return outcome, nil
	})

	select {
	case <-ctx.Done():
		return model.VerificationOutcome{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			lookups.WithLabelValues("shared").Inc()
		} else {
			lookups.WithLabelValues("miss").Inc()
		}
		if res.Err != nil {
			return model.VerificationOutcome{}, res.Err
		}
		outcome := res.Val.(model.VerificationOutcome).Clone()
		outcome.ClaimID = claim.ID
		return outcome, nil
	}
}
