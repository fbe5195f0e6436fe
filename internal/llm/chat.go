package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
)

// completion is one prompt sent to a chat-style backend
type completion struct {
	System    string
	Prompt    string
	Image     *model.Image
	JSON      bool // Ask the backend to constrain output to JSON
	MaxTokens int
}

// completer is the transport a chat-style backend implements
type completer interface {
	complete(ctx context.Context, req completion) (string, error)
}

// chatProvider implements extraction, verification and critique on top of
// a completer. Verification is grounded with a Searcher because these
// backends cannot search on their own.
type chatProvider struct {
	name       string
	modelName  string
	backend    completer
	searcher   Searcher
	maxSources int
	maxTokens  int
}

func newChatProvider(name, modelName string, backend completer, searcher Searcher, config Config) *chatProvider {
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	maxSources := config.MaxSources
	if maxSources <= 0 {
		maxSources = 4
	}
	return &chatProvider{
		name:       name,
		modelName:  modelName,
		backend:    backend,
		searcher:   searcher,
		maxSources: maxSources,
		maxTokens:  maxTokens,
	}
}

// Name returns the provider name
func (p *chatProvider) Name() string {
	return p.name
}

// ModelName returns the model requests are sent to
func (p *chatProvider) ModelName() string {
	return p.modelName
}

// Extract decomposes the request into claims
func (p *chatProvider) Extract(ctx context.Context, req ExtractRequest) ([]model.Claim, error) {
	text, err := p.backend.complete(ctx, completion{
		System:    systemPrompt,
		Prompt:    BuildExtractPrompt(req.Text, req.Image != nil),
		Image:     req.Image,
		JSON:      true,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return nil, providerError(p.name, "extract", err)
	}

	claims, err := ParseClaims(text)
	if err != nil {
		return nil, providerError(p.name, "extract", err)
	}
	return claims, nil
}

// Verify grounds the claim with search results and asks for a verdict.
// The search results become the outcome's sources.
func (p *chatProvider) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	var evidence []model.SourceEvidence
	if p.searcher != nil {
		evidence = p.searcher.Search(ctx, claim.Text, p.maxSources)
	}

	text, err := p.backend.complete(ctx, completion{
		System:    systemPrompt,
		Prompt:    BuildVerifyPrompt(claim, evidence),
		JSON:      true,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return model.VerificationOutcome{}, providerError(p.name, "verify", err)
	}
	if strings.TrimSpace(text) == "" {
		return model.VerificationOutcome{}, providerError(p.name, "verify", ErrEmptyResponse)
	}

	outcome, err := ParseVerdict(claim.ID, text)
	if err != nil {
		return model.VerificationOutcome{}, providerError(p.name, "verify", err)
	}
	outcome.Sources = model.NormalizeSources(evidence)
	return outcome, nil
}

// Critique writes the closing assessment
func (p *chatProvider) Critique(ctx context.Context, req CritiqueRequest) (*model.Critique, error) {
	text, err := p.backend.complete(ctx, completion{
		System:    systemPrompt,
		Prompt:    BuildCritiquePrompt(req),
		JSON:      true,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return nil, providerError(p.name, "critique", err)
	}

	critique, err := ParseCritique(text)
	if err != nil {
		return nil, providerError(p.name, "critique", err)
	}
	return critique, nil
}
