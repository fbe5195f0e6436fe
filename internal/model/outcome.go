package model

// Status is the verification state of a single claim
type Status string

const (
	StatusSupported    Status = "supported"
	StatusContradicted Status = "contradicted"
	StatusMixed        Status = "mixed"
	StatusUnverified   Status = "unverified"
	StatusLoading      Status = "loading"
	StatusSkipped      Status = "skipped"
)

// IsVerdict reports whether the status is the terminal result of a verification call
func (s Status) IsVerdict() bool {
	switch s {
	case StatusSupported, StatusContradicted, StatusMixed, StatusUnverified:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status will not change again during a run
func (s Status) IsTerminal() bool {
	return s.IsVerdict() || s == StatusSkipped
}

// Skip reasons assigned by the prioritizer
const (
	SkipNotTestable   = "not testable"
	SkipLowImpact     = "low impact"
	SkipDeprioritized = "deprioritized"
)

// VerificationOutcome is the in-progress or final verification result of one claim
type VerificationOutcome struct {
	ClaimID     string           `json:"claim_id"`
	Status      Status           `json:"status"`
	Explanation string           `json:"explanation"`
	Sources     []SourceEvidence `json:"sources"`
}

// Clone returns a deep copy of the outcome
func (o VerificationOutcome) Clone() VerificationOutcome {
	c := o
	c.Sources = append([]SourceEvidence(nil), o.Sources...)
	if c.Sources == nil {
		c.Sources = []SourceEvidence{}
	}
	return c
}

// Unverified builds the synthetic outcome used when a claim could not be checked
func Unverified(claimID, explanation string) VerificationOutcome {
	return VerificationOutcome{
		ClaimID:     claimID,
		Status:      StatusUnverified,
		Explanation: explanation,
		Sources:     []SourceEvidence{},
	}
}
