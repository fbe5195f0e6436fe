package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/faultline/internal/model"
)

const (
	noExplanation     = "No structural analysis provided."
	maxFreeTextLength = 150
)

var (
	fencedJSON    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	claimValidate = validator.New()
)

// CleanJSON pulls the JSON payload out of a model answer: the body of a
// fenced block if present, else the span from the first brace or bracket
// to its last counterpart
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}

	brace := strings.Index(text, "{")
	bracket := strings.Index(text, "[")

	start, end := -1, -1
	switch {
	case brace != -1 && (bracket == -1 || brace < bracket):
		start, end = brace, strings.LastIndex(text, "}")
	case bracket != -1:
		start, end = bracket, strings.LastIndex(text, "]")
	}
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

type rawClaim struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Type           string          `json:"type"`
	Importance     json.RawMessage `json:"importance"`
	DependsOn      []string        `json:"depends_on"`
	DependsOnCamel []string        `json:"dependsOn"`
}

// ParseClaims decodes an extraction answer. Both a bare array and an
// object with a "claims" array are accepted. Missing ids become c1..cN,
// importance is clamped to 1..5 and unknown types become interpretation.
// Entries without text are dropped.
func ParseClaims(text string) ([]model.Claim, error) {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var raws []rawClaim
	if err := json.Unmarshal([]byte(cleaned), &raws); err != nil {
		var wrapped struct {
			Claims []rawClaim `json:"claims"`
		}
		if err2 := json.Unmarshal([]byte(cleaned), &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode claims: %w", err)
		}
		raws = wrapped.Claims
	}

	claims := make([]model.Claim, 0, len(raws))
	for i, r := range raws {
		c := model.Claim{
			ID:         strings.TrimSpace(r.ID),
			Text:       strings.TrimSpace(r.Text),
			Type:       model.ParseClaimType(strings.ToLower(strings.TrimSpace(r.Type))),
			Importance: model.ClampImportance(parseImportance(r.Importance)),
			DependsOn:  r.DependsOn,
		}
		if c.Text == "" {
			continue
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("c%d", i+1)
		}
		if len(c.DependsOn) == 0 {
			c.DependsOn = r.DependsOnCamel
		}
		if err := claimValidate.Struct(c); err != nil {
			continue
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// parseImportance accepts numbers and numeric strings. Anything else
// counts as the lowest importance.
func parseImportance(raw json.RawMessage) int {
	if len(raw) == 0 {
		return model.MinImportance
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f + 0.5)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return model.MinImportance
}

type rawVerdict struct {
	Status      *string `json:"status"`
	Verdict     *string `json:"verdict"`
	Explanation string  `json:"explanation"`
	Reasoning   string  `json:"reasoning"`
}

// ParseVerdict decodes a verification answer for claimID. A non-JSON
// answer is treated as a mixed verdict explained by its own text; JSON
// without a status is unverified. Sources are left empty.
func ParseVerdict(claimID, text string) (model.VerificationOutcome, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.VerificationOutcome{}, ErrEmptyResponse
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(CleanJSON(trimmed)), &raw); err != nil {
		return model.VerificationOutcome{
			ClaimID:     claimID,
			Status:      model.StatusMixed,
			Explanation: truncate(trimmed, maxFreeTextLength),
			Sources:     []model.SourceEvidence{},
		}, nil
	}

	status := model.StatusUnverified
	switch {
	case raw.Status != nil:
		status = NormalizeStatus(*raw.Status)
	case raw.Verdict != nil:
		status = NormalizeStatus(*raw.Verdict)
	}

	explanation := strings.TrimSpace(raw.Explanation)
	if explanation == "" {
		explanation = strings.TrimSpace(raw.Reasoning)
	}
	if explanation == "" {
		explanation = noExplanation
	}

	return model.VerificationOutcome{
		ClaimID:     claimID,
		Status:      status,
		Explanation: explanation,
		Sources:     []model.SourceEvidence{},
	}, nil
}

// NormalizeStatus maps free-form status words onto the four verdicts
func NormalizeStatus(s string) model.Status {
	s = strings.ToLower(strings.TrimSpace(s))
	switch model.Status(s) {
	case model.StatusSupported, model.StatusContradicted, model.StatusMixed, model.StatusUnverified:
		return model.Status(s)
	}

	switch {
	case s == "":
		return model.StatusUnverified
	case containsAny(s, "unverif", "unknown", "insufficient", "cannot", "unable", "no evidence"):
		return model.StatusUnverified
	case containsAny(s, "not supported", "unsupported", "untrue", "contradict", "refut", "false", "incorrect", "debunk", "wrong"):
		return model.StatusContradicted
	case containsAny(s, "mixed", "partial", "inconclusive", "disputed", "misleading", "nuanced"):
		return model.StatusMixed
	case containsAny(s, "support", "true", "confirm", "correct", "accurate", "verified"):
		return model.StatusSupported
	}
	return model.StatusUnverified
}

// ParseCritique decodes a critique answer
func ParseCritique(text string) (*model.Critique, error) {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var raw struct {
		Critique            string `json:"critique"`
		Summary             string `json:"summary"`
		ImprovedPrompt      string `json:"improvedPrompt"`
		ImprovedPromptSnake string `json:"improved_prompt"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("decode critique: %w", err)
	}

	c := &model.Critique{
		Summary:        firstNonEmpty(raw.Critique, raw.Summary),
		ImprovedPrompt: firstNonEmpty(raw.ImprovedPrompt, raw.ImprovedPromptSnake),
	}
	if c.Summary == "" && c.ImprovedPrompt == "" {
		return nil, errors.New("critique has no content")
	}
	return c, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
