package model

import (
	"strings"
	"testing"
)

func TestNormalizeSources(t *testing.T) {
	sources := []SourceEvidence{
		{Title: "A", URI: "https://a.example"},
		{Title: "A again", URI: "https://a.example"},
		{Title: "", URI: "https://b.example"},
		{Title: "No URI"},
		{Title: "C", URI: "https://c.example"},
		{Title: "D", URI: "https://d.example"},
	}

	got := NormalizeSources(sources)
	if len(got) != MaxSources {
		t.Fatalf("expected %d sources, got %d", MaxSources, len(got))
	}
	if got[0].Title != "A" {
		t.Errorf("expected first occurrence to win, got %q", got[0].Title)
	}
	if got[1].Title != "Source" {
		t.Errorf("expected default title, got %q", got[1].Title)
	}
	if got[2].URI != "https://c.example" {
		t.Errorf("expected c.example third, got %s", got[2].URI)
	}

	if empty := NormalizeSources(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestPhaseCanAdvance(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhaseExtracting, true},
		{PhaseExtracting, PhaseVerifyingPriority, true},
		{PhaseVerifyingPriority, PhaseVerifyingPriority, true},
		{PhaseVerifyingPriority, PhaseComplete, true},
		{PhaseVerifyingBackground, PhaseVerifyingPriority, false},
		{PhaseComplete, PhaseFailed, false},
		{PhaseExtracting, PhaseFailed, true},
		{PhaseFailed, PhaseExtracting, false},
		{PhaseIdle, PhaseFailed, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanAdvance(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestRunStateClone(t *testing.T) {
	s := RunState{
		Claims: []Claim{{ID: "c1", DependsOn: []string{"c0"}}},
		Outcomes: map[string]VerificationOutcome{
			"c1": {ClaimID: "c1", Status: StatusSupported, Sources: []SourceEvidence{{URI: "https://x"}}},
		},
		Critique: &Critique{Summary: "ok"},
	}

	c := s.Clone()
	c.Claims[0].DependsOn[0] = "changed"
	c.Outcomes["c1"].Sources[0].URI = "changed"
	c.Critique.Summary = "changed"

	if s.Claims[0].DependsOn[0] != "c0" {
		t.Error("clone shares DependsOn")
	}
	if s.Outcomes["c1"].Sources[0].URI != "https://x" {
		t.Error("clone shares Sources")
	}
	if s.Critique.Summary != "ok" {
		t.Error("clone shares Critique")
	}
}

func TestParseClaimType(t *testing.T) {
	if ParseClaimType("fact") != ClaimTypeFact {
		t.Error("expected fact")
	}
	if ParseClaimType("factual") != ClaimTypeFact {
		t.Error("expected factual to map to fact")
	}
	if ParseClaimType("subjective") != ClaimTypeOpinion {
		t.Error("expected subjective to map to opinion")
	}
	if ParseClaimType("whatever") != ClaimTypeInterpretation {
		t.Error("expected unknown to map to interpretation")
	}
}

func TestClampImportance(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 3: 3, 5: 5, 9: 5} {
		if got := ClampImportance(in); got != want {
			t.Errorf("ClampImportance(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for mode, want := range map[string]int{ModeQuick: 12, ModeStandard: 24, ModeDeep: 40} {
		got, err := cfg.Budget(mode)
		if err != nil {
			t.Fatalf("Budget(%s): %v", mode, err)
		}
		if got != want {
			t.Errorf("Budget(%s) = %d, want %d", mode, got, want)
		}
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verification.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero concurrency")
	}

	cfg = DefaultConfig()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("expected unknown mode error, got %v", err)
	}
}
