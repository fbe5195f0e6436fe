package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-pro"

// generateFunc matches genai's Models.GenerateContent
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider implements Provider on the Gemini API. Verification uses
// the Google Search grounding tool and reads sources from the grounding
// metadata; the Searcher only fills in when grounding returns nothing.
type GeminiProvider struct {
	generate   generateFunc
	modelName  string
	maxTokens  int32
	searcher   Searcher
	maxSources int
}

// claimsSchema constrains extraction output to an array of claims
var claimsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":         {Type: genai.TypeString},
			"text":       {Type: genai.TypeString},
			"type":       {Type: genai.TypeString, Enum: []string{"fact", "opinion", "interpretation"}},
			"importance": {Type: genai.TypeInteger},
			"depends_on": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"id", "text", "type", "importance"},
	},
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(ctx context.Context, config Config, searcher Searcher) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(config, defaultTimeout),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return newGeminiProvider(client.Models.GenerateContent, config, searcher), nil
}

func newGeminiProvider(generate generateFunc, config Config, searcher Searcher) *GeminiProvider {
	modelName := config.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	maxSources := config.MaxSources
	if maxSources <= 0 {
		maxSources = 4
	}
	return &GeminiProvider{
		generate:   generate,
		modelName:  modelName,
		maxTokens:  int32(maxTokens),
		searcher:   searcher,
		maxSources: maxSources,
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// ModelName returns the model requests are sent to
func (p *GeminiProvider) ModelName() string {
	return p.modelName
}

// CheckAvailable sends a one-word prompt
func (p *GeminiProvider) CheckAvailable(ctx context.Context) error {
	_, err := p.generate(ctx, p.modelName, genai.Text("ping"), &genai.GenerateContentConfig{MaxOutputTokens: 5})
	if err != nil {
		return fmt.Errorf("Gemini API check failed: %w", err)
	}
	return nil
}

// Extract decomposes the request into claims using a JSON response schema
func (p *GeminiProvider) Extract(ctx context.Context, req ExtractRequest) ([]model.Claim, error) {
	parts := []*genai.Part{}
	if req.Image != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data}})
	}
	parts = append(parts, &genai.Part{Text: BuildExtractPrompt(req.Text, req.Image != nil)})

	resp, err := p.generate(ctx, p.modelName,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    claimsSchema,
			MaxOutputTokens:   p.maxTokens,
			Temperature:       genai.Ptr[float32](0.2),
		})
	if err != nil {
		return nil, providerError(p.Name(), "extract", err)
	}

	claims, err := ParseClaims(responseText(resp))
	if err != nil {
		return nil, providerError(p.Name(), "extract", err)
	}
	return claims, nil
}

// Verify stress-tests one claim with Google Search grounding. JSON output
// cannot be enforced together with the search tool, so the answer goes
// through ParseVerdict's free-text fallback.
func (p *GeminiProvider) Verify(ctx context.Context, claim model.Claim) (model.VerificationOutcome, error) {
	resp, err := p.generate(ctx, p.modelName,
		genai.Text(BuildVerifyPrompt(claim, nil)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			MaxOutputTokens:   p.maxTokens,
		})
	if err != nil {
		return model.VerificationOutcome{}, providerError(p.Name(), "verify", err)
	}

	outcome, err := ParseVerdict(claim.ID, responseText(resp))
	if err != nil {
		return model.VerificationOutcome{}, providerError(p.Name(), "verify", err)
	}

	sources := groundingSources(resp)
	if len(sources) == 0 && p.searcher != nil {
		sources = p.searcher.Search(ctx, claim.Text, p.maxSources)
	}
	outcome.Sources = model.NormalizeSources(sources)
	return outcome, nil
}

// Critique writes the closing assessment
func (p *GeminiProvider) Critique(ctx context.Context, req CritiqueRequest) (*model.Critique, error) {
	resp, err := p.generate(ctx, p.modelName,
		genai.Text(BuildCritiquePrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			MaxOutputTokens:  p.maxTokens,
		})
	if err != nil {
		return nil, providerError(p.Name(), "critique", err)
	}

	critique, err := ParseCritique(responseText(resp))
	if err != nil {
		return nil, providerError(p.Name(), "critique", err)
	}
	return critique, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// groundingSources reads web sources from the grounding metadata
func groundingSources(resp *genai.GenerateContentResponse) []model.SourceEvidence {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []model.SourceEvidence
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources = append(sources, model.SourceEvidence{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return sources
}
