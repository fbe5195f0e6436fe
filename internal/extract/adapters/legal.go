package adapters

import (
	"strings"

	"golang.org/x/net/html"
)

// LegalAdapter reads statute and regulation pages
type LegalAdapter struct {
	BaseAdapter
	legalDomains []string
}

// NewLegalAdapter creates a new legal document adapter
func NewLegalAdapter() *LegalAdapter {
	return &LegalAdapter{
		legalDomains: []string{
			"legislation.gov.uk",
			"law.cornell.edu",
			"justice.gov",
			"eur-lex.europa.eu",
		},
	}
}

// Name returns the adapter name
func (a *LegalAdapter) Name() string {
	return "legal"
}

// CanHandle checks if this is a legal document URL
func (a *LegalAdapter) CanHandle(rawURL string, contentType string) bool {
	lowerURL := strings.ToLower(rawURL)

	for _, domain := range a.legalDomains {
		if strings.Contains(lowerURL, domain) {
			return true
		}
	}

	return strings.Contains(lowerURL, "/statute") ||
		strings.Contains(lowerURL, "/regulation")
}

// ContentRoot prefers the conventional content containers of legal sites
func (a *LegalAdapter) ContentRoot(doc *html.Node) *html.Node {
	for _, id := range []string{"content", "viewLegContents", "main-content"} {
		if n := a.FindByID(doc, id); n != nil {
			return n
		}
	}
	return NewGenericAdapter().ContentRoot(doc)
}

// Skip drops furniture plus footnote and annotation blocks
func (a *LegalAdapter) Skip(n *html.Node) bool {
	return a.IsChrome(n) || a.HasAnyClass(n, "LegAnnotations", "footnote", "breadcrumb")
}
