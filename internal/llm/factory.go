package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
)

// NewProvider creates a provider based on configuration. searcher grounds
// verification for providers without built-in search and may be nil.
func NewProvider(config Config, searcher Searcher) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "gemini", "google":
		return NewGeminiProvider(context.Background(), config, searcher)

	case "openai":
		return NewOpenAIProvider(config, searcher)

	case "anthropic", "claude":
		return NewAnthropicProvider(config, searcher)

	case "ollama":
		return NewOllamaProvider(config, searcher)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (supported: gemini, openai, anthropic, ollama)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.Config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.MaxTokens,
		MaxSources: cfg.Search.MaxResults,
		HTTPProxy:  cfg.LLM.HTTPProxy,
		HTTPSProxy: cfg.LLM.HTTPSProxy,
		NoProxy:    cfg.LLM.NoProxy,
	}
}
