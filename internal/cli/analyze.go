package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	analyzeFlags   overrides
	inputText      string
	inputFile      string
	inputURL       string
	inputImage     string
	outJSON        string
	outMD          string
	analyzeTimeout time.Duration
	noFooter       bool
	quiet          bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze one answer and report its claim-level reliability",
	Long: `Analyze extracts the factual claims of a text or image, verifies the most
important ones against web evidence and reports a risk level.

Input can be given as arguments, --text, --file (use - for stdin), --url or
--image. Text from several inputs is combined; an image is analyzed with it.

Example:
  faultline analyze "The Eiffel Tower was completed in 1899."
  faultline analyze --file answer.txt --mode deep --md report.md
  pbpaste | faultline analyze --file -
  faultline analyze --image screenshot.png --json report.json
  faultline analyze --url https://example.com/article --provider openai`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVar(&inputText, "text", "", "text to analyze")
	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read text from file (- for stdin)")
	analyzeCmd.Flags().StringVar(&inputURL, "url", "", "fetch the page at URL and analyze its text")
	analyzeCmd.Flags().StringVar(&inputImage, "image", "", "image to analyze (png, jpeg, gif, webp)")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "overall analysis timeout")
	analyzeFlags.register(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := analyzeFlags.resolveConfig()
	if err != nil {
		return err
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	opts := pipeline.InputOptions{
		Text:      strings.TrimSpace(strings.Join(append(args, inputText), " ")),
		File:      inputFile,
		URL:       inputURL,
		ImagePath: inputImage,
		Mode:      cfg.Mode,
	}
	if opts.Text == "" && opts.File == "" && opts.URL == "" && opts.ImagePath == "" && stdinIsPipe() {
		opts.File = "-"
	}

	in, err := pipeline.LoadInput(ctx, a.fetcher, opts, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", in.Source)
		fmt.Fprintf(os.Stderr, "Provider:  %s/%s\n", a.provider.Name(), a.provider.ModelName())
		fmt.Fprintf(os.Stderr, "Mode:      %s\n", cfg.Mode)
		fmt.Fprintln(os.Stderr)
	}

	pub := pipeline.NewPublisher(0)
	var progress sync.WaitGroup
	if !quiet {
		snapshots, unsubscribe := pub.Subscribe()
		defer unsubscribe()
		progress.Add(1)
		go func() {
			defer progress.Done()
			printProgress(os.Stderr, snapshots)
		}()
	}

	state, err := a.pipeline.Analyze(ctx, in, pub)
	pub.Close()
	progress.Wait()
	if state == nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := &pipeline.Report{Source: in.Source, RunState: *state}
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)

	if renderErr := writeReports(renderer, report, outJSON, outMD, cmd.OutOrStdout()); renderErr != nil {
		return fmt.Errorf("render failed: %w", renderErr)
	}
	renderer.RenderSummary(os.Stderr, report)

	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

// printProgress prints one line per snapshot message until the channel closes
func printProgress(w io.Writer, snapshots <-chan model.RunState) {
	last := ""
	for state := range snapshots {
		if state.Message == "" || state.Message == last {
			continue
		}
		last = state.Message
		settled := 0
		for _, o := range state.Outcomes {
			if o.Status.IsVerdict() {
				settled++
			}
		}
		fmt.Fprintf(w, "⚙️  %s (%d/%d verified, risk %s)\n", state.Message, settled, len(state.Claims), state.RiskLevel)
	}
}

// writeReports writes JSON and Markdown outputs; "-" means stdout
func writeReports(r *pipeline.Renderer, report *pipeline.Report, jsonPath, mdPath string, stdout io.Writer) error {
	if jsonPath == "-" {
		if err := r.WriteJSON(stdout, report); err != nil {
			return err
		}
	} else if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
	}

	if mdPath == "-" {
		if err := r.WriteMarkdown(stdout, report); err != nil {
			return err
		}
	} else if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
	}
	return nil
}

func stdinIsPipe() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
