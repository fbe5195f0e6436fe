// Package search queries Google Custom Search for web evidence.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/worker"
)

const (
	// DefaultEndpoint is the Custom Search JSON API
	DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

	// MaxPerRequest is the API's upper bound for num
	MaxPerRequest = 10

	maxResponseBytes = 1 << 20
)

// Config configures a Client
type Config struct {
	APIKey    string
	EngineID  string
	ProxyBase string // Base of a server exposing GET {base}/search?q=
	Endpoint  string // Override for DefaultEndpoint
	Timeout   time.Duration
}

// Client looks up evidence for claims. It never returns errors: failures
// are logged and produce an empty result.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// Item is one Custom Search result as returned by the API
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet,omitempty"`
	HTMLSnippet string `json:"htmlSnippet,omitempty"`
}

// Response is the subset of the Custom Search payload that is read
type Response struct {
	Items []Item `json:"items"`
}

// NewClient creates a search client. limiter and logger may be nil.
func NewClient(config Config, httpClient *http.Client, limiter *worker.Limiter, logger *slog.Logger) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// Configured reports whether any backend is available
func (c *Client) Configured() bool {
	return c.config.ProxyBase != "" || (c.config.APIKey != "" && c.config.EngineID != "")
}

// Search returns up to maxResults sources for query. The proxy base is
// tried first; the direct API is used when the proxy fails and
// credentials are present.
func (c *Client) Search(ctx context.Context, query string, maxResults int) []model.SourceEvidence {
	query = strings.TrimSpace(query)
	if query == "" || maxResults <= 0 || !c.Configured() {
		return []model.SourceEvidence{}
	}

	if c.config.ProxyBase != "" {
		items, err := c.viaProxy(ctx, query)
		if err == nil {
			return toEvidence(items, maxResults)
		}
		c.logger.Warn("search proxy failed", "error", err)
	}

	if c.config.APIKey == "" || c.config.EngineID == "" {
		return []model.SourceEvidence{}
	}
	items, err := c.Query(ctx, query, maxResults)
	if err != nil {
		c.logger.Warn("custom search failed", "error", err)
		return []model.SourceEvidence{}
	}
	return toEvidence(items, maxResults)
}

// Query calls the Custom Search API directly and returns raw items
func (c *Client) Query(ctx context.Context, query string, num int) ([]Item, error) {
	if c.config.APIKey == "" || c.config.EngineID == "" {
		return nil, fmt.Errorf("search not configured")
	}
	if num > MaxPerRequest {
		num = MaxPerRequest
	}
	if num < 1 {
		num = 1
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	return c.get(ctx, c.config.Endpoint+"?"+params.Encode())
}

func (c *Client) viaProxy(ctx context.Context, query string) ([]Item, error) {
	endpoint := strings.TrimSuffix(c.config.ProxyBase, "/") + "/search?q=" + url.QueryEscape(query)
	return c.get(ctx, endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]Item, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return payload.Items, nil
}

func toEvidence(items []Item, maxResults int) []model.SourceEvidence {
	out := make([]model.SourceEvidence, 0, maxResults)
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = "Source"
		}
		snippet := item.Snippet
		if snippet == "" {
			snippet = item.HTMLSnippet
		}
		out = append(out, model.SourceEvidence{Title: title, URI: item.Link, Snippet: snippet})
		if len(out) == maxResults {
			break
		}
	}
	return out
}
