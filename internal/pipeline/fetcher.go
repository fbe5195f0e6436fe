package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/faultline/internal/extract"
	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/util"
	"github.com/ppiankov/faultline/internal/worker"
)

const maxRedirects = 3

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher fetches pages given as URL inputs and reduces them to text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil when robots.txt is ignored
	limiter    *worker.Limiter
	extractor  *extract.Extractor
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		extractor:  extract.NewExtractor(),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, &http.Client{Timeout: 10 * time.Second})
	}
	return f
}

// FetchResult contains the extracted page and response metadata
type FetchResult struct {
	Document    *extract.Document
	StatusCode  int
	ContentType string
	Subject     string
	FinalURL    string
}

// Fetch retrieves rawURL and extracts its visible text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	var delay time.Duration
	if f.robots != nil {
		decision, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		delay = decision.CrawlDelay
	}

	if err := f.limiter.WaitURLWithDelay(ctx, rawURL, delay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	contentType := resp.Header.Get("Content-Type")

	var doc *extract.Document
	if strings.HasPrefix(contentType, "text/plain") {
		doc = &extract.Document{Text: strings.TrimSpace(string(body)), URL: finalURL, Adapter: "plain"}
	} else {
		doc, err = f.extractor.FromHTML(string(body), finalURL, contentType)
		if err != nil {
			return nil, err
		}
	}

	return &FetchResult{
		Document:    doc,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Subject:     extractSubject(finalURL),
		FinalURL:    finalURL,
	}, nil
}

// extractSubject extracts a human-readable subject from the URL
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// De-slugify
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
