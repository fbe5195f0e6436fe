package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

// Analyzer runs a complete analysis of one input source (file path or URL)
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.RunState, error)
}

// AnalysisResult is the outcome of one batch entry
type AnalysisResult struct {
	Source   string
	State    *model.RunState
	Error    error
	Duration time.Duration
}

// BatchProcessor analyzes many sources, several at a time
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	timeout     time.Duration
}

// NewBatchProcessor creates a batch processor. timeout bounds each
// source; zero means no per-source limit.
func NewBatchProcessor(analyzer Analyzer, concurrency int, timeout time.Duration) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// ProcessSources analyzes sources and returns results in input order
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AnalysisResult {
	if len(sources) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool[*AnalysisResult](ctx, b.concurrency)
	pool.Start()

	for _, source := range sources {
		source := source
		pool.Submit(func(ctx context.Context) *AnalysisResult {
			return b.analyze(ctx, source)
		})
	}

	results := pool.Wait()
	for i, res := range results {
		if res == nil {
			results[i] = &AnalysisResult{Source: sources[i], Error: ctx.Err()}
		}
	}
	return results
}

func (b *BatchProcessor) analyze(ctx context.Context, source string) *AnalysisResult {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	state, err := b.analyzer.AnalyzeSource(ctx, source)
	return &AnalysisResult{
		Source:   source,
		State:    state,
		Error:    err,
		Duration: time.Since(start),
	}
}

// ProcessFile reads sources from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalysisResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads one source per line, skipping blanks,
// comments and duplicates
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return sources, nil
}
