package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// WikipediaAdapter reads MediaWiki article bodies
type WikipediaAdapter struct {
	BaseAdapter
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle matches *.wikipedia.org article URLs
func (a *WikipediaAdapter) CanHandle(rawURL string, contentType string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return (host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")) &&
		strings.HasPrefix(parsed.Path, "/wiki/")
}

// ContentRoot returns the parser output inside #mw-content-text
func (a *WikipediaAdapter) ContentRoot(doc *html.Node) *html.Node {
	if n := a.FindFirst(doc, func(n *html.Node) bool { return a.HasClass(n, "mw-parser-output") }); n != nil {
		return n
	}
	if n := a.FindByID(doc, "mw-content-text"); n != nil {
		return n
	}
	return NewGenericAdapter().ContentRoot(doc)
}

// Skip drops citation markers, edit links, navboxes and reference lists
func (a *WikipediaAdapter) Skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data == "sup" && a.HasClass(n, "reference") {
		return true
	}
	if n.Data == "table" && a.HasAnyClass(n, "infobox", "navbox", "metadata", "sidebar") {
		return true
	}
	return a.HasAnyClass(n,
		"mw-editsection", "reflist", "references", "navbox", "hatnote",
		"thumbcaption", "mw-empty-elt", "noprint", "toc",
	) || a.IsChrome(n)
}
