package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_Check(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		_, _ = fmt.Fprint(w, "User-agent: Faultline\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Faultline/0.1 (+https://github.com/ppiankov/faultline)", server.Client())
	ctx := context.Background()

	d, err := checker.Check(ctx, server.URL+"/articles/1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !d.Allowed {
		t.Error("expected /articles/1 to be allowed")
	}
	if d.CrawlDelay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", d.CrawlDelay)
	}

	d, err = checker.Check(ctx, server.URL+"/private/page")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if d.Allowed {
		t.Error("expected /private/page to be disallowed")
	}

	if hits != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", hits)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	d, err := NewRobotsChecker("Faultline/0.1", server.Client()).Check(context.Background(), server.URL+"/x")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !d.Allowed {
		t.Error("expected missing robots.txt to allow")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	d, err := NewRobotsChecker("Faultline/0.1", &http.Client{Timeout: 200 * time.Millisecond}).
		Check(context.Background(), "http://127.0.0.1:1/page")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !d.Allowed {
		t.Error("expected unreachable robots.txt to allow")
	}
}

func TestRobotsChecker_BadURL(t *testing.T) {
	if _, err := NewRobotsChecker("Faultline", nil).Check(context.Background(), "no-host"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	cases := map[string]string{
		"Faultline/0.1 (+https://example.com)": "Faultline",
		"curl/8.0":                             "curl",
		"plain":                                "plain",
		"":                                     "",
	}
	for in, want := range cases {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBypassProxy(t *testing.T) {
	cases := []struct {
		host, noProxy string
		want          bool
	}{
		{"localhost", "localhost,127.0.0.1", true},
		{"api.internal.example", ".internal.example", true},
		{"api.internal.example", "internal.example", true},
		{"example.com", "internal.example", false},
		{"anything", "*", true},
		{"example.com", "", false},
	}
	for _, c := range cases {
		if got := BypassProxy(c.host, c.noProxy); got != c.want {
			t.Errorf("BypassProxy(%q, %q) = %v, want %v", c.host, c.noProxy, got, c.want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "localhost")

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := fn(req)
	if err != nil || u == nil || u.Host != "secure-proxy:8443" {
		t.Errorf("expected https proxy, got %v (%v)", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err = fn(req)
	if err != nil || u == nil || u.Host != "proxy:8080" {
		t.Errorf("expected http proxy, got %v (%v)", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:11434", nil)
	if u, _ = fn(req); u != nil {
		t.Errorf("expected localhost to bypass proxy, got %v", u)
	}
}
