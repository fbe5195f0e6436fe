package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/faultline/internal/model"
)

func anthropicServer(t *testing.T, text string, inspect func(anthropicRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(req)
		}

		_, _ = w.Write([]byte(`{"id":"msg_123","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022",` +
			`"content":[{"type":"text","text":` + mustJSON(text) + `}],"usage":{"input_tokens":50,"output_tokens":50}}`))
	}))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestAnthropicProvider_Verify_Success(t *testing.T) {
	server := anthropicServer(t, "Here is my assessment:\n```json\n{\"status\": \"contradicted\", \"explanation\": \"It opened in 1889, not 1900.\"}\n```", func(req anthropicRequest) {
		if req.System == "" {
			t.Error("expected system prompt")
		}
		if len(req.Messages) != 1 || req.Messages[0].Content[0].Type != "text" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
	})
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5}, &fakeSearcher{results: sampleEvidence[:1]})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	outcome, err := provider.Verify(context.Background(), sampleClaim)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if outcome.Status != model.StatusContradicted {
		t.Errorf("expected contradicted, got %s", outcome.Status)
	}
	if len(outcome.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(outcome.Sources))
	}
}

func TestAnthropicProvider_Extract_ImageBlock(t *testing.T) {
	server := anthropicServer(t, `[{"id":"a","text":"Revenue grew.","type":"Fact","importance":"4"}]`, func(req anthropicRequest) {
		content := req.Messages[0].Content
		if len(content) != 2 {
			t.Errorf("expected image and text blocks, got %d", len(content))
			return
		}
		if content[0].Type != "image" || content[0].Source == nil || content[0].Source.MediaType != "image/jpeg" {
			t.Errorf("unexpected image block: %+v", content[0])
		}
	})
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	claims, err := provider.Extract(context.Background(), ExtractRequest{
		Image: &model.Image{Data: []byte("jpegdata"), MIMEType: "image/jpeg"},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(claims) != 1 || claims[0].Type != model.ClaimTypeFact || claims[0].Importance != 4 {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	_, err := provider.Verify(context.Background(), sampleClaim)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "authentication_error") {
		t.Errorf("expected API error details, got %v", err)
	}
}

func TestAnthropicProvider_CheckAvailable(t *testing.T) {
	server := anthropicServer(t, "Hello", nil)
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if err := provider.CheckAvailable(context.Background()); err != nil {
		t.Errorf("expected provider to be available: %v", err)
	}
}

func TestNewAnthropicProvider_NoAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}, nil); err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}
