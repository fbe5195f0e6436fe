// Package extract turns fetched HTML into the plain text sent to claim extraction.
package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/faultline/internal/extract/adapters"
	"golang.org/x/net/html"
)

// Document is the readable content of a fetched page
type Document struct {
	Title   string
	Text    string
	URL     string
	Adapter string
}

// Extractor converts HTML into a Document using site adapters
type Extractor struct {
	registry *adapters.Registry
}

// NewExtractor creates an extractor with the built-in adapters
func NewExtractor() *Extractor {
	return &Extractor{registry: adapters.NewRegistry()}
}

// FromHTML extracts the title and visible text of a page
func (e *Extractor) FromHTML(htmlContent, pageURL, contentType string) (*Document, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	adapter := e.registry.FindAdapter(pageURL, contentType)
	root := adapter.ContentRoot(doc)

	return &Document{
		Title:   title(doc),
		Text:    visibleText(root, adapter.Skip),
		URL:     pageURL,
		Adapter: adapter.Name(),
	}, nil
}

// FromHTML extracts a document with the default extractor
func FromHTML(htmlContent, pageURL, contentType string) (*Document, error) {
	return NewExtractor().FromHTML(htmlContent, pageURL, contentType)
}

// Block-level elements end a line of output
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
	"dd": true, "dt": true, "figcaption": true, "table": true, "ul": true, "ol": true,
}

// Never visible
var hiddenElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"template": true, "svg": true, "head": true,
}

func visibleText(root *html.Node, skip func(*html.Node) bool) string {
	var lines []string
	var current strings.Builder

	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if hiddenElements[n.Data] || skip(n) {
				return
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteByte(' ')
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}

	walk(root)
	flush()

	return strings.Join(lines, "\n")
}

// title prefers og:title over <title>
func title(doc *html.Node) string {
	var titleTag, ogTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if titleTag == "" && n.FirstChild != nil {
					titleTag = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				if attr(n, "property") == "og:title" && ogTitle == "" {
					ogTitle = strings.TrimSpace(attr(n, "content"))
				}
			case "body":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if ogTitle != "" {
		return ogTitle
	}
	return titleTag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
