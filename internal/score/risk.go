// Package score derives the overall risk level of an analysis from the
// verification outcomes accumulated so far.
//
// The classification is transparent: every assessment records which rule
// fired and the counts it was computed from, so a report can explain itself.
package score

import (
	"fmt"

	"github.com/ppiankov/faultline/internal/model"
)

// Tally counts outcomes by status
type Tally struct {
	Total        int `json:"total"` // Claims extracted in the run
	Recorded     int `json:"recorded"`
	Supported    int `json:"supported"`
	Contradicted int `json:"contradicted"`
	Mixed        int `json:"mixed"`
	Unverified   int `json:"unverified"`
	Loading      int `json:"loading"`
	Skipped      int `json:"skipped"`
}

// Verdicts returns how many outcomes reached a verification verdict
func (t Tally) Verdicts() int {
	return t.Supported + t.Contradicted + t.Mixed + t.Unverified
}

// Unknown returns unverified outcomes plus claims with no outcome at all
func (t Tally) Unknown() int {
	missing := t.Total - t.Recorded
	if missing < 0 {
		missing = 0
	}
	return t.Unverified + missing
}

// Assessment is a risk level plus the rule that produced it
type Assessment struct {
	Level  model.RiskLevel `json:"level"`
	Rule   int             `json:"rule"`
	Reason string          `json:"reason"`
	Tally  Tally           `json:"tally"`
}

// Count tallies an outcomes snapshot
func Count(outcomes map[string]model.VerificationOutcome, total int) Tally {
	t := Tally{Total: total, Recorded: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case model.StatusSupported:
			t.Supported++
		case model.StatusContradicted:
			t.Contradicted++
		case model.StatusMixed:
			t.Mixed++
		case model.StatusUnverified:
			t.Unverified++
		case model.StatusLoading:
			t.Loading++
		case model.StatusSkipped:
			t.Skipped++
		}
	}
	return t
}

// Risk classifies an outcomes snapshot. It is a pure function of its inputs.
func Risk(outcomes map[string]model.VerificationOutcome, total int) model.RiskLevel {
	return Assess(outcomes, total).Level
}

// Assess evaluates the risk rules top to bottom; the first match wins.
// A run where nothing has been verified yet is never low risk.
// Skipped outcomes are not verdicts and do not count as verified.
func Assess(outcomes map[string]model.VerificationOutcome, total int) Assessment {
	t := Count(outcomes, total)
	a := Assessment{Tally: t}

	switch {
	case t.Contradicted >= 2 || (t.Contradicted >= 1 && t.Mixed >= 1):
		a.Level, a.Rule = model.RiskCritical, 1
		a.Reason = fmt.Sprintf("%d contradicted and %d mixed claims", t.Contradicted, t.Mixed)
	case t.Contradicted >= 1:
		a.Level, a.Rule = model.RiskHigh, 2
		a.Reason = "a load-bearing claim is contradicted"
	case t.Mixed >= 2:
		a.Level, a.Rule = model.RiskHigh, 3
		a.Reason = fmt.Sprintf("%d claims have mixed evidence", t.Mixed)
	case t.Mixed == 1:
		a.Level, a.Rule = model.RiskMedium, 4
		a.Reason = "one claim has mixed evidence"
	case t.Unknown() >= unknownThreshold(total):
		a.Level, a.Rule = model.RiskMedium, 5
		a.Reason = fmt.Sprintf("%d of %d claims could not be verified", t.Unknown(), total)
	case t.Verdicts() == 0 && total > 0:
		a.Level, a.Rule = model.RiskMedium, 6
		a.Reason = "nothing has been verified yet"
	default:
		a.Level, a.Rule = model.RiskLow, 7
		a.Reason = "no contradictions found"
	}

	return a
}

// unknownThreshold is max(2, ceil(0.3 * total))
func unknownThreshold(total int) int {
	if total < 0 {
		total = 0
	}
	threshold := (3*total + 9) / 10
	if threshold < 2 {
		threshold = 2
	}
	return threshold
}
