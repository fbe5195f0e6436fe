package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ppiankov/faultline/internal/cache"
	"github.com/ppiankov/faultline/internal/llm"
	"github.com/ppiankov/faultline/internal/logging"
	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/pipeline"
	"github.com/ppiankov/faultline/internal/search"
	"github.com/ppiankov/faultline/internal/util"
	"github.com/ppiankov/faultline/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the wired components shared by analyze, batch and serve
type app struct {
	cfg      *model.Config
	logger   *slog.Logger
	provider llm.Provider
	searcher *search.Client
	limiter  *worker.Limiter
	fetcher  *pipeline.Fetcher
	pipeline *pipeline.Pipeline
}

// overrides are the flags shared by the commands that run analyses
type overrides struct {
	mode        string
	provider    string
	model       string
	concurrency int
	retries     int
	noCache     bool
	noRobots    bool
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.mode, "mode", "", "analysis mode: quick, standard, deep (default from config)")
	cmd.Flags().StringVar(&o.provider, "provider", "", "LLM provider: gemini, openai, anthropic, ollama")
	cmd.Flags().StringVar(&o.model, "model", "", "LLM model name (provider default when empty)")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "concurrent verifications per chunk (default from config)")
	cmd.Flags().IntVar(&o.retries, "retries", -1, "retries per claim after the first attempt (default from config)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the verification cache")
	cmd.Flags().BoolVar(&o.noRobots, "no-robots", false, "ignore robots.txt when fetching --url inputs")
}

// resolveConfig layers flags and provider env over the viper configuration
func (o *overrides) resolveConfig() (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.provider != "" && o.provider != cfg.LLM.Provider {
		cfg.LLM.Provider = o.provider
		cfg.LLM.APIKey = ""
		cfg.LLM.Model = ""
	}
	if o.model != "" {
		cfg.LLM.Model = o.model
	}
	if o.concurrency > 0 {
		cfg.Verification.Concurrency = o.concurrency
	}
	if o.retries >= 0 {
		cfg.Verification.Retries = o.retries
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}
	if o.noRobots {
		cfg.HTTP.RespectRobots = false
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	applyProviderEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires provider, search, cache, rate limiting and retries into
// a pipeline
func newApp(cfg *model.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = logging.New(cfg.Output.Verbose, os.Stderr)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	searchClient := search.NewClient(search.Config{
		APIKey:    cfg.Search.APIKey,
		EngineID:  cfg.Search.EngineID,
		ProxyBase: cfg.Search.ProxyBase,
	}, util.NewHTTPClient(15*time.Second, cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy), limiter, logger)

	var searcher llm.Searcher
	if searchClient.Configured() {
		searcher = searchClient
	} else {
		logger.Debug("search not configured, non-gemini providers verify without evidence")
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg), searcher)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	settler := worker.NewRetryingVerifier(verifierChain(cfg, provider, limiter), worker.RetryPolicy{
		Timeout:   cfg.Verification.Timeout,
		Retries:   cfg.Verification.Retries,
		BaseDelay: cfg.Verification.BaseDelay,
	}, logger)

	logger.Debug("runtime ready",
		"provider", provider.Name(),
		"model", provider.ModelName(),
		"cache", cfg.Cache.Enabled,
		"concurrency", cfg.Verification.Concurrency,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		searcher: searchClient,
		limiter:  limiter,
		fetcher:  pipeline.NewFetcher(cfg.HTTP, limiter),
		pipeline: pipeline.NewPipeline(cfg, provider, provider, settler, logger),
	}, nil
}

// verifierChain decorates the provider: cache first, then the per-provider
// rate limit, so cache hits are not throttled
func verifierChain(cfg *model.Config, provider llm.Provider, limiter *worker.Limiter) worker.Verifier {
	var next worker.Verifier = provider
	next = worker.RateLimited(next, limiter, "llm:"+provider.Name())

	if cfg.Cache.Enabled {
		store := cache.NewMemoryStore(cfg.Cache.TTL, 2*cfg.Cache.TTL)
		cached := cache.NewVerifier(next, store, cfg.Cache.TTL, provider.Name(), provider.ModelName())
		cached.SetFlightTimeout(cfg.Verification.Timeout)
		next = cached
	}
	return next
}

// checkProvider warns when the provider is unreachable
func (a *app) checkProvider(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.provider.CheckAvailable(ctx); err != nil {
		a.logger.Warn("provider not available", "provider", a.provider.Name(), "error", err)
	}
}
