package model

import "time"

// Phase is the lifecycle stage of one analysis run
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseExtracting          Phase = "extracting"
	PhaseVerifyingPriority   Phase = "verifying_priority"
	PhaseVerifyingBackground Phase = "verifying_background"
	PhaseComplete            Phase = "complete"
	PhaseFailed              Phase = "failed"
)

// phaseRank orders the forward-only phases; failed is handled separately
var phaseRank = map[Phase]int{
	PhaseIdle:                0,
	PhaseExtracting:          1,
	PhaseVerifyingPriority:   2,
	PhaseVerifyingBackground: 3,
	PhaseComplete:            4,
}

// CanAdvance reports whether a run may move from p to next.
// Phases only move forward (staying put is allowed); failed is reachable
// from anything except complete, and nothing leaves complete or failed.
func (p Phase) CanAdvance(next Phase) bool {
	if p == PhaseFailed || p == PhaseComplete {
		return p == next
	}
	if next == PhaseFailed {
		return true
	}
	from, ok := phaseRank[p]
	if !ok {
		return false
	}
	to, ok := phaseRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// RiskLevel is the overall reliability classification of an analyzed answer
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns a comparable severity for the level (low = 0)
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Critique is the generated assessment that closes a run
type Critique struct {
	Summary        string `json:"summary"`
	ImprovedPrompt string `json:"improved_prompt"`
}

// FallbackCritique is substituted whenever critique generation fails
func FallbackCritique() Critique {
	return Critique{
		Summary:        "Analysis incomplete.",
		ImprovedPrompt: "Verify facts before trusting AI outputs.",
	}
}

// RunState is the externally observable aggregate of one analysis run
type RunState struct {
	RunID     string                         `json:"run_id"`
	Mode      string                         `json:"mode,omitempty"`
	Budget    int                            `json:"budget"`
	Phase     Phase                          `json:"phase"`
	Claims    []Claim                        `json:"claims"`
	Outcomes  map[string]VerificationOutcome `json:"outcomes"`
	RiskLevel RiskLevel                      `json:"risk_level"`
	Message   string                         `json:"message,omitempty"` // Human-readable progress line
	Error     string                         `json:"error,omitempty"`
	Critique  *Critique                      `json:"critique,omitempty"`
	StartedAt time.Time                      `json:"started_at"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// Clone returns a deep copy that shares no mutable data with s
func (s RunState) Clone() RunState {
	c := s
	c.Claims = make([]Claim, len(s.Claims))
	for i, claim := range s.Claims {
		claim.DependsOn = append([]string(nil), claim.DependsOn...)
		c.Claims[i] = claim
	}
	c.Outcomes = make(map[string]VerificationOutcome, len(s.Outcomes))
	for id, o := range s.Outcomes {
		c.Outcomes[id] = o.Clone()
	}
	if s.Critique != nil {
		critique := *s.Critique
		c.Critique = &critique
	}
	return c
}

// Count returns how many outcomes currently carry the given status
func (s RunState) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Image is an optional binary input analyzed alongside (or instead of) text
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}
