// Package page models the host page under test: its parsed document, its
// forms and the fields inside them.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML document as seen by an engine, either the host
// page or a response captured in a hidden frame.
type Document struct {
	*goquery.Document

	URL        string
	StatusCode int
	raw        string
}

// NewDocument parses r. statusCode is 0 when the engine cannot observe it.
func NewDocument(r io.Reader, url string, statusCode int) (*Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return ParseHTML(string(body), url, statusCode)
}

// ParseHTML parses an HTML string.
func ParseHTML(html, url string, statusCode int) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		Document:   doc,
		URL:        url,
		StatusCode: statusCode,
		raw:        html,
	}, nil
}

// HTML returns the markup exactly as it was received.
func (d *Document) HTML() string {
	return d.raw
}

// BodyHasContent is the liveness probe for hidden frames: true once <body>
// holds at least one child node, text included.
func (d *Document) BodyHasContent() bool {
	if d == nil || d.Document == nil {
		return false
	}
	return d.Find("body").First().Contents().Length() > 0
}
