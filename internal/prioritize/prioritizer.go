// Package prioritize decides which extracted claims are worth verifying
// under a fixed budget, and why the rest are skipped.
package prioritize

import (
	"sort"

	"github.com/ppiankov/faultline/internal/model"
)

// DefaultMinImportance is the lowest importance a fact needs to be eligible
const DefaultMinImportance = 3

// Plan is the result of prioritization: the ordered claims to verify and a
// terminal skipped outcome for every claim that will not be verified
type Plan struct {
	Selected []model.Claim
	Skipped  map[string]model.VerificationOutcome
}

// Prioritizer selects the verification subset for a run
type Prioritizer struct {
	minImportance int
}

// New creates a prioritizer. minImportance <= 0 falls back to the default.
func New(minImportance int) *Prioritizer {
	if minImportance <= 0 {
		minImportance = DefaultMinImportance
	}
	return &Prioritizer{minImportance: minImportance}
}

// Plan selects at most budget claims. Only facts at or above the importance
// threshold are eligible; they are ordered by importance descending, keeping
// extraction order on ties. Every other claim gets a skipped outcome.
func (p *Prioritizer) Plan(claims []model.Claim, budget int) Plan {
	plan := Plan{
		Selected: []model.Claim{},
		Skipped:  make(map[string]model.VerificationOutcome),
	}

	var eligible []model.Claim
	for _, c := range claims {
		if reason := p.ineligibleReason(c); reason != "" {
			plan.Skipped[c.ID] = skipped(c.ID, reason)
			continue
		}
		eligible = append(eligible, c)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Importance > eligible[j].Importance
	})

	if budget < 0 {
		budget = 0
	}
	for i, c := range eligible {
		if i < budget {
			plan.Selected = append(plan.Selected, c)
			continue
		}
		plan.Skipped[c.ID] = skipped(c.ID, model.SkipDeprioritized)
	}

	return plan
}

// ineligibleReason returns the skip reason for a claim, or "" if it is eligible
func (p *Prioritizer) ineligibleReason(c model.Claim) string {
	if c.Type != model.ClaimTypeFact {
		return model.SkipNotTestable
	}
	if c.Importance < p.minImportance {
		return model.SkipLowImpact
	}
	return ""
}

func skipped(id, reason string) model.VerificationOutcome {
	return model.VerificationOutcome{
		ClaimID:     id,
		Status:      model.StatusSkipped,
		Explanation: reason,
		Sources:     []model.SourceEvidence{},
	}
}

// SplitWaves partitions the selected claims into the priority wave (importance
// at or above priorityImportance) and the background wave, preserving order.
func SplitWaves(selected []model.Claim, priorityImportance int) (priority, background []model.Claim) {
	if priorityImportance <= 0 {
		priorityImportance = model.MaxImportance
	}
	for _, c := range selected {
		if c.Importance >= priorityImportance {
			priority = append(priority, c)
		} else {
			background = append(background, c)
		}
	}
	return priority, background
}
