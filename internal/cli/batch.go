package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/pipeline"
	"github.com/ppiankov/faultline/internal/worker"
	"github.com/spf13/cobra"
)

var (
	batchFlags     overrides
	batchWorkers   int
	outputDir      string
	batchTimeout   time.Duration
	perItemTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many inputs listed in a file",
	Long: `Batch analyzes every input listed in a file, one per line:
- http(s) URLs are fetched and their visible text analyzed
- paths to existing files are read as text (or as images by extension)
- any other line is analyzed as literal text

Blank lines and lines starting with # are ignored. Each input gets its own
JSON and Markdown report in the output directory.

Example:
  faultline batch inputs.txt
  faultline batch inputs.txt --workers 4 --output-dir ./reports --mode quick`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 2, "inputs analyzed at the same time")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./faultline-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&perItemTimeout, "item-timeout", 10*time.Minute, "timeout for a single input")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchFlags.register(batchCmd)
}

// sourceAnalyzer adapts the pipeline to worker.Analyzer
type sourceAnalyzer struct {
	app *app
}

func (s *sourceAnalyzer) AnalyzeSource(ctx context.Context, source string) (*model.RunState, error) {
	in, err := pipeline.LoadInput(ctx, s.app.fetcher, sourceOptions(source, s.app.cfg.Mode), nil)
	if err != nil {
		return nil, err
	}
	return s.app.pipeline.Analyze(ctx, in, nil)
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// sourceOptions classifies one batch line as URL, file, image or text
func sourceOptions(source, mode string) pipeline.InputOptions {
	opts := pipeline.InputOptions{Mode: mode}

	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		opts.URL = source
		return opts
	}
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		if imageExtensions[strings.ToLower(filepath.Ext(source))] {
			opts.ImagePath = source
		} else {
			opts.File = source
		}
		return opts
	}
	opts.Text = source
	return opts
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := batchFlags.resolveConfig()
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

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Faultline Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", batchWorkers)
	fmt.Fprintf(os.Stderr, "  Provider:     %s/%s\n", a.provider.Name(), a.provider.ModelName())
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", cfg.Mode)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(&sourceAnalyzer{app: a}, batchWorkers, perItemTimeout)

	fmt.Fprintf(os.Stderr, "⚙️  Processing inputs with %d workers...\n\n", batchWorkers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0
	used := make(map[string]int)

	for i, result := range results {
		if result.State == nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", shorten(result.Source), result.Error)
			continue
		}

		slug := sanitizeFilename(result.Source, i+1)
		if n := used[slug]; n > 0 {
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		}
		used[slug]++

		report := &pipeline.Report{Source: result.Source, RunState: *result.State}
		if err := renderer.RenderJSON(report, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", shorten(result.Source), err)
			failureCount++
			continue
		}
		if err := renderer.RenderMarkdown(report, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", shorten(result.Source), err)
			failureCount++
			continue
		}

		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", shorten(result.Source), result.Error)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (risk: %s, %s)\n", shorten(result.Source), result.State.RiskLevel, result.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename derives a report name from a batch source. Sources that
// leave nothing usable fall back to input-<n>.
func sanitizeFilename(source string, n int) string {
	s := source
	if u, err := url.Parse(source); err == nil && u.Host != "" {
		s = u.Host + u.Path
	} else if _, err := os.Stat(source); err == nil {
		s = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	s = unsafeFilename.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-.")
	}
	if s == "" {
		return fmt.Sprintf("input-%d", n)
	}
	return s
}

func shorten(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) > 60 {
		return string([]rune(s)[:57]) + "..."
	}
	return s
}
