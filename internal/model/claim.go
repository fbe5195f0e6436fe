package model

// Claim is one atomic assertion extracted from the analyzed text or image
type Claim struct {
	ID         string    `json:"id" yaml:"id" validate:"required"`
	Text       string    `json:"text" yaml:"text" validate:"required"`
	Type       ClaimType `json:"type" yaml:"type" validate:"oneof=fact opinion interpretation"`
	Importance int       `json:"importance" yaml:"importance" validate:"min=1,max=5"` // 5 = load-bearing for the argument
	DependsOn  []string  `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`    // IDs of claims this one builds on
}

// ClaimType categorizes how testable a claim is
type ClaimType string

const (
	ClaimTypeFact           ClaimType = "fact"           // Verifiable against external evidence
	ClaimTypeOpinion        ClaimType = "opinion"        // Subjective
	ClaimTypeInterpretation ClaimType = "interpretation" // Inference drawn from other claims
)

// Importance bounds
const (
	MinImportance = 1
	MaxImportance = 5
)

// ParseClaimType maps a loosely formatted type string onto a ClaimType.
// Unknown values are treated as interpretation, the least testable reading
// that still is not an opinion.
func ParseClaimType(s string) ClaimType {
	switch ClaimType(s) {
	case ClaimTypeFact, ClaimTypeOpinion, ClaimTypeInterpretation:
		return ClaimType(s)
	}
	switch s {
	case "facts", "factual", "verifiable":
		return ClaimTypeFact
	case "subjective", "opinions":
		return ClaimTypeOpinion
	default:
		return ClaimTypeInterpretation
	}
}

// ClampImportance forces an importance score into the 1..5 range
func ClampImportance(n int) int {
	if n < MinImportance {
		return MinImportance
	}
	if n > MaxImportance {
		return MaxImportance
	}
	return n
}
