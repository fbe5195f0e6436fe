package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
)

// Report is a finished run together with where its input came from
type Report struct {
	Source string `json:"source,omitempty"`
	model.RunState
}

// Renderer writes reports as JSON, Markdown and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// WriteJSON encodes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Status order of the Markdown tables
var statusOrder = []model.Status{
	model.StatusContradicted,
	model.StatusMixed,
	model.StatusUnverified,
	model.StatusSupported,
	model.StatusLoading,
	model.StatusSkipped,
}

var statusIcon = map[model.Status]string{
	model.StatusSupported:    "✓",
	model.StatusContradicted: "✗",
	model.StatusMixed:        "~",
	model.StatusUnverified:   "?",
	model.StatusLoading:      "…",
	model.StatusSkipped:      "-",
}

// WriteMarkdown renders the report as Markdown
func (r *Renderer) WriteMarkdown(w io.Writer, report *Report) error {
	var b strings.Builder

	b.WriteString("# Faultline Report\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s\n\n", report.Source)
	}
	fmt.Fprintf(&b, "**Risk:** %s  \n", strings.ToUpper(string(report.RiskLevel)))
	fmt.Fprintf(&b, "**Mode:** %s (budget %d)  \n", report.Mode, report.Budget)
	fmt.Fprintf(&b, "**Phase:** %s  \n", report.Phase)
	fmt.Fprintf(&b, "**Run:** `%s`\n\n", report.RunID)

	if report.Error != "" {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", report.Error)
	}

	if len(report.Claims) > 0 {
		b.WriteString("## Summary\n\n")
		b.WriteString("| Status | Claims |\n|---|---|\n")
		for _, s := range statusOrder {
			if n := report.Count(s); n > 0 {
				fmt.Fprintf(&b, "| %s %s | %d |\n", statusIcon[s], s, n)
			}
		}
		b.WriteString("\n## Claims\n\n")

		for _, c := range orderedClaims(report.Claims, report.Outcomes) {
			o := report.Outcomes[c.ID]
			fmt.Fprintf(&b, "### %s %s\n\n", statusIcon[o.Status], c.Text)
			fmt.Fprintf(&b, "- **Status:** %s\n", o.Status)
			fmt.Fprintf(&b, "- **Type:** %s, importance %d\n", c.Type, c.Importance)
			if len(c.DependsOn) > 0 {
				fmt.Fprintf(&b, "- **Depends on:** %s\n", strings.Join(c.DependsOn, ", "))
			}
			if o.Explanation != "" {
				fmt.Fprintf(&b, "- **Explanation:** %s\n", o.Explanation)
			}
			for _, src := range o.Sources {
				fmt.Fprintf(&b, "  - [%s](%s)\n", escapeLinkText(src.Title), src.URI)
			}
			b.WriteString("\n")
		}
	}

	if report.Critique != nil {
		b.WriteString("## Critique\n\n")
		fmt.Fprintf(&b, "%s\n\n", report.Critique.Summary)
		if report.Critique.ImprovedPrompt != "" {
			b.WriteString("### Improved prompt\n\n")
			fmt.Fprintf(&b, "```\n%s\n```\n\n", report.Critique.ImprovedPrompt)
		}
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("*Generated by Faultline. Verdicts come from automated search and model reasoning; check the sources before relying on them.*\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, report *Report) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	if report.Source != "" {
		fmt.Fprintf(w, "  %s\n", report.Source)
	} else {
		fmt.Fprintf(w, "  Faultline analysis\n")
	}
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")

	if report.Phase == model.PhaseFailed {
		fmt.Fprintf(w, "  Failed: %s\n\n", report.Error)
		return
	}

	fmt.Fprintf(w, "  Risk:          %s\n", strings.ToUpper(string(report.RiskLevel)))
	fmt.Fprintf(w, "  Claims:        %d\n", len(report.Claims))
	fmt.Fprintf(w, "  Supported:     %d\n", report.Count(model.StatusSupported))
	fmt.Fprintf(w, "  Contradicted:  %d\n", report.Count(model.StatusContradicted))
	fmt.Fprintf(w, "  Mixed:         %d\n", report.Count(model.StatusMixed))
	fmt.Fprintf(w, "  Unverified:    %d\n", report.Count(model.StatusUnverified))
	fmt.Fprintf(w, "  Skipped:       %d\n", report.Count(model.StatusSkipped))

	if report.Critique != nil {
		fmt.Fprintf(w, "\n  %s\n", report.Critique.Summary)
	}
	fmt.Fprintf(w, "\n")
}

// orderedClaims sorts claims by status severity, keeping claim order within a status
func orderedClaims(claims []model.Claim, outcomes map[string]model.VerificationOutcome) []model.Claim {
	rank := make(map[model.Status]int, len(statusOrder))
	for i, s := range statusOrder {
		rank[s] = i
	}

	out := append([]model.Claim(nil), claims...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[outcomes[out[i].ID].Status] < rank[outcomes[out[j].ID].Status]
	})
	return out
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", "\\[", "]", "\\]").Replace(s)
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
