package adapters

import (
	"golang.org/x/net/html"
)

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string, contentType string) bool {
	return true
}

// ContentRoot prefers <article>, then <main>, then <body>
func (a *GenericAdapter) ContentRoot(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main", "body"} {
		if n := a.FindElement(doc, tag); n != nil {
			return n
		}
	}
	return doc
}

// Skip drops navigation and other page furniture
func (a *GenericAdapter) Skip(n *html.Node) bool {
	return a.IsChrome(n)
}
