package model

// SourceEvidence is one piece of evidence attached to a verification outcome
type SourceEvidence struct {
	Title   string `json:"title"`
	URI     string `json:"uri"` // Dedup key
	Snippet string `json:"snippet,omitempty"`
}

// MaxSources caps the evidence list of a single outcome
const MaxSources = 3

// NormalizeSources drops entries without a URI, deduplicates by URI
// (first occurrence wins) and truncates to MaxSources.
func NormalizeSources(sources []SourceEvidence) []SourceEvidence {
	if len(sources) == 0 {
		return []SourceEvidence{}
	}

	seen := make(map[string]bool, len(sources))
	out := make([]SourceEvidence, 0, MaxSources)
	for _, s := range sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		if s.Title == "" {
			s.Title = "Source"
		}
		out = append(out, s)
		if len(out) == MaxSources {
			break
		}
	}
	return out
}
