package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/faultline/internal/worker"
)

const cseBody = `{"items":[
	{"title":"First","link":"https://a.example/1","snippet":"one"},
	{"title":"","link":"https://b.example/2","htmlSnippet":"<b>two</b>"},
	{"title":"No link"},
	{"title":"Third","link":"https://c.example/3"},
	{"title":"Fourth","link":"https://d.example/4"},
	{"title":"Fifth","link":"https://e.example/5"}
]}`

func TestClient_Search_Direct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" || q.Get("q") != "moon landing 1969" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("num") != "4" {
			t.Errorf("expected num=4, got %s", q.Get("num"))
		}
		_, _ = w.Write([]byte(cseBody))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", EngineID: "cx", Endpoint: server.URL}, server.Client(), worker.NewLimiter(0, 1), nil)
	got := c.Search(context.Background(), "moon landing 1969", 4)

	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %d", len(got))
	}
	if got[1].Title != "Source" || got[1].Snippet != "<b>two</b>" {
		t.Errorf("unexpected second result: %+v", got[1])
	}
	if got[2].URI != "https://c.example/3" {
		t.Errorf("items without link should be dropped, got %+v", got[2])
	}
}

func TestClient_Query_CapsNum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("num") != "10" {
			t.Errorf("expected num capped at 10, got %s", r.URL.Query().Get("num"))
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", EngineID: "cx", Endpoint: server.URL}, nil, nil, nil)
	items, err := c.Query(context.Background(), "q", 25)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestClient_Search_Proxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" || r.URL.Query().Get("q") != "a b" {
			t.Errorf("unexpected proxy request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(cseBody))
	}))
	defer server.Close()

	c := NewClient(Config{ProxyBase: server.URL + "/api/"}, nil, nil, nil)
	if got := c.Search(context.Background(), "a b", 2); len(got) != 2 {
		t.Errorf("expected 2 results via proxy, got %d", len(got))
	}
}

func TestClient_Search_ProxyFailureFallsBack(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cseBody))
	}))
	defer direct.Close()
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()

	c := NewClient(Config{APIKey: "k", EngineID: "cx", Endpoint: direct.URL, ProxyBase: proxy.URL}, nil, nil, nil)
	if got := c.Search(context.Background(), "q", 3); len(got) != 3 {
		t.Errorf("expected direct fallback results, got %d", len(got))
	}
}

func TestClient_Search_NeverFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	cases := []*Client{
		NewClient(Config{}, nil, nil, nil),
		NewClient(Config{APIKey: "k", EngineID: "cx", Endpoint: server.URL}, nil, nil, nil),
		NewClient(Config{APIKey: "k", EngineID: "cx", Endpoint: "http://127.0.0.1:1"}, nil, nil, nil),
	}
	for i, c := range cases {
		got := c.Search(context.Background(), "anything", 4)
		if got == nil || len(got) != 0 {
			t.Errorf("case %d: expected empty non-nil result, got %v", i, got)
		}
	}

	if NewClient(Config{}, nil, nil, nil).Configured() {
		t.Error("empty config should not be configured")
	}
}
