package llm

import (
	"context"

	"github.com/ppiankov/faultline/internal/model"
)

// Extractor decomposes text (and optionally an image) into atomic claims
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]model.Claim, error)
}

// Verifier checks one claim against external evidence. Implementations do
// not time out or retry on their own; failures are returned as
// *ProviderError.
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error)
}

// Critic writes the closing assessment of a run
type Critic interface {
	Critique(ctx context.Context, req CritiqueRequest) (*model.Critique, error)
}

// Searcher returns web evidence for a query. It never fails: a
// misconfigured or unreachable backend yields an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []model.SourceEvidence
}

// Provider is a complete reasoning backend
type Provider interface {
	Extractor
	Verifier
	Critic

	// Name returns the provider name
	Name() string

	// ModelName returns the model requests are sent to
	ModelName() string

	// CheckAvailable reports why the provider cannot be used, or nil
	CheckAvailable(ctx context.Context) error
}

// ExtractRequest is the input of claim extraction
type ExtractRequest struct {
	Text  string
	Image *model.Image
}

// CritiqueRequest is the input of the closing critique
type CritiqueRequest struct {
	Text     string
	Claims   []model.Claim
	Outcomes map[string]model.VerificationOutcome
}

// Fractured returns the claims whose outcome is contradicted or mixed,
// in claim order
func (r CritiqueRequest) Fractured() []model.Claim {
	var out []model.Claim
	for _, c := range r.Claims {
		o, ok := r.Outcomes[c.ID]
		if !ok {
			continue
		}
		if o.Status == model.StatusContradicted || o.Status == model.StatusMixed {
			out = append(out, c)
		}
	}
	return out
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic" (or "claude"), "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, proxies, tests)
	BaseURL string

	// Timeout for HTTP transport
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// MaxSources caps evidence requested from the Searcher
	MaxSources int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Timeout:    60,
		MaxTokens:  2000,
		MaxSources: 4,
	}
}
