package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Analysis modes and their verification budgets
const (
	ModeQuick    = "quick"
	ModeStandard = "standard"
	ModeDeep     = "deep"
)

// Config holds all Faultline settings
type Config struct {
	Mode         string             `yaml:"mode" mapstructure:"mode" validate:"required"`
	Budgets      map[string]int     `yaml:"budgets" mapstructure:"budgets" validate:"required,dive,gte=0"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// VerificationConfig controls prioritization, batching and retries
type VerificationConfig struct {
	Concurrency        int           `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=64"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`         // Per attempt
	Retries            int           `yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"` // Extra attempts after the first
	BaseDelay          time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	MinImportance      int           `yaml:"min_importance" mapstructure:"min_importance" validate:"min=1,max=5"`
	PriorityImportance int           `yaml:"priority_importance" mapstructure:"priority_importance" validate:"min=1,max=5"`
}

// LLMConfig selects and configures the reasoning/search backend
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig configures the Google Custom Search evidence backend
type SearchConfig struct {
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID   string `yaml:"engine_id,omitempty" mapstructure:"engine_id"`
	ProxyBase  string `yaml:"proxy_base,omitempty" mapstructure:"proxy_base"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results" validate:"gte=1,lte=10"`
}

// CacheConfig controls the in-memory verification cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RateLimitConfig throttles outbound requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`
}

// HTTPConfig controls fetching of URL inputs
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// ServerConfig controls `faultline serve`
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the defaults used when nothing else is configured
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeStandard,
		Budgets: map[string]int{
			ModeQuick:    12,
			ModeStandard: 24,
			ModeDeep:     40,
		},
		Verification: VerificationConfig{
			Concurrency:        6,
			Timeout:            45 * time.Second,
			Retries:            2,
			BaseDelay:          800 * time.Millisecond,
			MinImportance:      3,
			PriorityImportance: 5,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Search: SearchConfig{
			MaxResults: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 4,
			BurstSize:         6,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Faultline/0.1 (+https://github.com/ppiankov/faultline)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Server: ServerConfig{
			Addr: ":8788",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Budget returns the verification budget of the given mode
func (c *Config) Budget(mode string) (int, error) {
	if mode == "" {
		mode = c.Mode
	}
	budget, ok := c.Budgets[mode]
	if !ok {
		return 0, fmt.Errorf("unknown mode %q", mode)
	}
	return budget, nil
}

var configValidate = validator.New()

// Validate checks the configuration bounds
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Budget(c.Mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
