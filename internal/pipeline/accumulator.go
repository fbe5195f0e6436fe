package pipeline

import (
	"sync"

	"github.com/ppiankov/faultline/internal/model"
)

// Explanation given to selected claims until their verification settles
const queuedExplanation = "Queued for verification"

// Accumulator merges per-claim outcomes into the running outcome map
type Accumulator struct {
	mu       sync.Mutex
	outcomes map[string]model.VerificationOutcome
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{outcomes: make(map[string]model.VerificationOutcome)}
}

// Seed records the prioritizer's initial outcomes: skipped claims and
// loading placeholders. A placeholder never replaces a settled outcome.
func (a *Accumulator) Seed(outcome model.VerificationOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if outcome.Status == model.StatusLoading {
		if existing, ok := a.outcomes[outcome.ClaimID]; ok && existing.Status.IsTerminal() {
			return
		}
	}
	a.store(outcome)
}

// Queue seeds a loading placeholder for every claim
func (a *Accumulator) Queue(claims []model.Claim) {
	for _, c := range claims {
		a.Seed(model.VerificationOutcome{
			ClaimID:     c.ID,
			Status:      model.StatusLoading,
			Explanation: queuedExplanation,
		})
	}
}

// Merge records a verification result, last write wins. Statuses that are
// not verdicts are coerced to unverified.
func (a *Accumulator) Merge(outcome model.VerificationOutcome) {
	if !outcome.Status.IsVerdict() {
		outcome.Status = model.StatusUnverified
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.store(outcome)
}

func (a *Accumulator) store(outcome model.VerificationOutcome) {
	outcome = outcome.Clone()
	outcome.Sources = model.NormalizeSources(outcome.Sources)
	a.outcomes[outcome.ClaimID] = outcome
}

// Get returns the current outcome of a claim
func (a *Accumulator) Get(claimID string) (model.VerificationOutcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	o, ok := a.outcomes[claimID]
	if !ok {
		return model.VerificationOutcome{}, false
	}
	return o.Clone(), true
}

// Len returns the number of claims with an outcome
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}

// Snapshot returns a deep copy of the outcome map
func (a *Accumulator) Snapshot() map[string]model.VerificationOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]model.VerificationOutcome, len(a.outcomes))
	for id, o := range a.outcomes {
		out[id] = o.Clone()
	}
	return out
}
