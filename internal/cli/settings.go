package cli

import (
	"fmt"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// setDefaults registers every default config key with v, so that
// environment variables can override keys the config file never mentions
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Secrets are omitted from the YAML form but still need env overrides
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
		"search.api_key", "search.engine_id", "search.proxy_base",
	} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// loadConfig decodes the layered configuration (file, FAULTLINE_* env,
// defaults) into a model.Config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// applyProviderEnv fills credentials from the conventional provider
// variables, which take precedence over FAULTLINE_* settings
func applyProviderEnv(cfg *model.Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			*dst = val
		}
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini", "google":
		set(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	case "openai":
		set(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic", "claude":
		set(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "ollama":
		set(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
	}

	set(&cfg.Search.APIKey, "CUSTOM_SEARCH_API_KEY")
	set(&cfg.Search.EngineID, "GOOGLE_CSE_ID")
	set(&cfg.Search.ProxyBase, "PROXY_BASE_URL")
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	out.Budgets = make(map[string]int, len(cfg.Budgets))
	for k, v := range cfg.Budgets {
		out.Budgets[k] = v
	}
	out.LLM.APIKey = mask(cfg.LLM.APIKey)
	out.Search.APIKey = mask(cfg.Search.APIKey)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
