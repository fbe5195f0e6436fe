// Package adapters locates the readable content of pages from known sites.
package adapters

import (
	"strings"

	"golang.org/x/net/html"
)

// Adapter defines how to read one family of pages
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL/content
	CanHandle(url string, contentType string) bool

	// ContentRoot returns the node holding the page's main content
	ContentRoot(doc *html.Node) *html.Node

	// Skip reports whether a subtree is chrome (navigation, citations,
	// edit links) rather than content
	Skip(n *html.Node) bool
}

// Registry manages site adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewWikipediaAdapter())
	registry.Register(NewLegalAdapter())

	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL and content type
func (r *Registry) FindAdapter(url string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url, contentType) {
			return adapter
		}
	}
	return r.generic
}

// BaseAdapter provides node helpers shared by adapters
type BaseAdapter struct{}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range strings.Fields(b.GetAttribute(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

// HasAnyClass checks if a node has one of the classes
func (b *BaseAdapter) HasAnyClass(n *html.Node, classNames ...string) bool {
	for _, c := range classNames {
		if b.HasClass(n, c) {
			return true
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate, depth first
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// FindElement finds the first element with the given tag
func (b *BaseAdapter) FindElement(n *html.Node, tag string) *html.Node {
	return b.FindFirst(n, func(node *html.Node) bool {
		return node.Type == html.ElementNode && node.Data == tag
	})
}

// FindByID finds the element with the given id
func (b *BaseAdapter) FindByID(n *html.Node, id string) *html.Node {
	return b.FindFirst(n, func(node *html.Node) bool {
		return node.Type == html.ElementNode && b.GetAttribute(node, "id") == id
	})
}

// IsChrome reports whether n is page furniture common to most sites
func (b *BaseAdapter) IsChrome(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "nav", "header", "footer", "aside", "form", "button":
		return true
	}
	switch b.GetAttribute(n, "role") {
	case "navigation", "banner", "contentinfo", "complementary":
		return true
	}
	return b.GetAttribute(n, "aria-hidden") == "true"
}
