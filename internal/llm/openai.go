package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider on OpenAI chat completions
type OpenAIProvider struct {
	*chatProvider
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config, searcher Searcher) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config, defaultTimeout)

	modelName := config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	p := &OpenAIProvider{client: openai.NewClientWithConfig(clientConfig)}
	p.chatProvider = newChatProvider("openai", modelName, p, searcher, config)
	return p, nil
}

// CheckAvailable lists models as a lightweight authenticated call
func (p *OpenAIProvider) CheckAvailable(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI API check failed: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) complete(ctx context.Context, req completion) (string, error) {
	user := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	}
	if req.Image != nil {
		user.Content = ""
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(req.Image.MIMEType, req.Image.Data),
				Detail: openai.ImageURLDetailAuto,
			}},
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			user,
		},
		MaxTokens:   req.MaxTokens,
		Temperature: 0.2,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
