package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
)

const (
	systemPrompt = "You are a structural engineer for information integrity. You decompose arguments into load-bearing claims and stress-test them against evidence. Answer with JSON only."

	critiqueContextChars = 500
	imageOnlyContext     = "Image-based analysis"
)

// BuildExtractPrompt asks for the atomic claims of text (and image)
func BuildExtractPrompt(text string, hasImage bool) string {
	var b strings.Builder

	subject := "text"
	if hasImage {
		subject = "image and text"
		if text == "" {
			subject = "image"
		}
	}
	fmt.Fprintf(&b, "Analyze the following %s and decompose it into structural elements (atomic claims).\n", subject)
	b.WriteString("Extract the assertions that bear the weight of the argument.\n")
	if hasImage {
		b.WriteString("If the image contains text or data, treat that as the primary source of claims.\n")
	}
	if text != "" {
		fmt.Fprintf(&b, "\nText: %q\n", text)
	}
	b.WriteString(`
Return a JSON object {"claims": [...]} where each claim has:
- id: a unique string id such as "c1"
- text: the claim as a standalone sentence
- type: "fact" (verifiable), "opinion" (subjective) or "interpretation" (inference)
- importance: integer 1-5, 5 being critical to the argument's integrity
- depends_on: ids of earlier claims this one builds on (may be empty)
`)
	return b.String()
}

// BuildVerifyPrompt asks for a verdict on one claim. evidence lists search
// results gathered beforehand; it is empty for providers that search on
// their own.
func BuildVerifyPrompt(claim model.Claim, evidence []model.SourceEvidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stress-test this claim against evidence.\n\nClaim: %q\n\n", claim.Text)
	if len(evidence) > 0 {
		b.WriteString("Evidence gathered from a web search:\n")
		for i, e := range evidence {
			fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, e.Title, e.URI)
			if e.Snippet != "" {
				fmt.Fprintf(&b, "    %s\n", e.Snippet)
			}
		}
		b.WriteString("\nJudge only from this evidence. If it does not address the claim, answer \"unverified\".\n\n")
	} else {
		b.WriteString("1. Search for evidence.\n")
	}
	b.WriteString(`Decide whether the claim holds up ("supported"), fails ("contradicted"), is inconclusive ("mixed") or cannot be checked ("unverified").

Return strictly a JSON object without markdown or preamble:
{"status": "supported" | "contradicted" | "mixed" | "unverified", "explanation": "Concise engineering assessment (max 2 sentences)."}
`)
	return b.String()
}

// BuildCritiquePrompt asks for the closing assessment and a reinforcement prompt
func BuildCritiquePrompt(req CritiqueRequest) string {
	var b strings.Builder

	fractured := req.Fractured()
	b.WriteString("A structural integrity test on a text found these fractures (contradicted or mixed claims):\n")
	if len(fractured) == 0 {
		b.WriteString("- none\n")
	}
	for _, c := range fractured {
		fmt.Fprintf(&b, "- %s\n", c.Text)
	}

	fmt.Fprintf(&b, "\nOriginal text context: %q\n", critiqueContext(req.Text))
	b.WriteString(`
1. Write a brief structural integrity assessment (max 50 words) describing how stable or dangerous this information is. Use seismic or engineering metaphors.
2. Suggest a reinforcement prompt the user could use to rebuild this answer on a stronger foundation.

Return JSON: {"critique": string, "improvedPrompt": string}
`)
	return b.String()
}

func critiqueContext(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return imageOnlyContext
	}
	r := []rune(text)
	if len(r) > critiqueContextChars {
		return string(r[:critiqueContextChars]) + "..."
	}
	return text
}
