package llm

import (
	"testing"

	"github.com/ppiankov/faultline/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"gemini", Config{APIKey: "k"}, "gemini", false},
		{"openai", Config{APIKey: "k"}, "openai", false},
		{"anthropic", Config{APIKey: "k"}, "anthropic", false},
		{"Claude", Config{APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Model: "llama3.1:8b"}, "ollama", false},
		{"gemini", Config{}, "", true},
		{"", Config{APIKey: "k"}, "", true},
		{"mystery", Config{APIKey: "k"}, "", true},
	}
	for _, tt := range tests {
		tt.config.Provider = tt.provider
		p, err := NewProvider(tt.config, nil)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.provider, err)
			continue
		}
		if p.Name() != tt.wantName {
			t.Errorf("%s: expected name %s, got %s", tt.provider, tt.wantName, p.Name())
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.LLM.NoProxy = "localhost"

	c := ConfigFromModel(cfg)
	if c.Provider != "gemini" || c.APIKey != "secret" || c.NoProxy != "localhost" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.MaxSources != cfg.Search.MaxResults {
		t.Errorf("expected max sources %d, got %d", cfg.Search.MaxResults, c.MaxSources)
	}
}
