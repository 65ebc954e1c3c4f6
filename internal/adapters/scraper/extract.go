// Package scraper turns a rendered quote-listing page into domain quotes.
package scraper

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
)

// Layout names the page layout that produced an extraction.
type Layout string

const (
	LayoutPrimary  Layout = "primary"
	LayoutFallback Layout = "fallback"
	LayoutNone     Layout = "none"
)

// Selectors locate quotes in the page. Primary and Fallback select quote
// containers; Text selects the text element inside a container.
type Selectors struct {
	Primary  string
	Fallback string
	Text     string
}

// DefaultSelectors match the current and the older quote page layouts.
var DefaultSelectors = Selectors{
	Primary:  ".quote",
	Fallback: "div.quoteDetails",
	Text:     ".quoteText",
}

// Extraction is the result of parsing one document.
type Extraction struct {
	Quotes domain.QuoteCollection
	Layout Layout
}

// Extractor pulls quotes out of rendered HTML. It is a pure function of the
// document; the same markup always yields the same collection.
type Extractor struct {
	selectors Selectors
	separator string
}

// NewExtractor creates an extractor. Empty fields fall back to
// DefaultSelectors and domain.AttributionSeparator.
func NewExtractor(sel Selectors, separator string) *Extractor {
	if sel.Primary == "" {
		sel.Primary = DefaultSelectors.Primary
	}

	if sel.Fallback == "" {
		sel.Fallback = DefaultSelectors.Fallback
	}

	if sel.Text == "" {
		sel.Text = DefaultSelectors.Text
	}

	if separator == "" {
		separator = domain.AttributionSeparator
	}

	return &Extractor{selectors: sel, separator: separator}
}

// Extract parses r and returns one quote per container, in document order.
// Containers come from the primary selector, or the fallback selector when
// the primary matches nothing. A container without a text element yields a
// quote with empty text.
func (e *Extractor) Extract(r io.Reader) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	return e.ExtractDocument(doc), nil
}

// ExtractString is Extract over an in-memory document.
func (e *Extractor) ExtractString(markup string) (*Extraction, error) {
	return e.Extract(strings.NewReader(markup))
}

// ExtractDocument is Extract over an already parsed document.
func (e *Extractor) ExtractDocument(doc *goquery.Document) *Extraction {
	layout := LayoutPrimary

	containers := doc.Find(e.selectors.Primary)
	if containers.Length() == 0 {
		layout = LayoutFallback
		containers = doc.Find(e.selectors.Fallback)
	}

	if containers.Length() == 0 {
		return &Extraction{Quotes: domain.QuoteCollection{}, Layout: LayoutNone}
	}

	quotes := make(domain.QuoteCollection, 0, containers.Length())

	containers.Each(func(_ int, c *goquery.Selection) {
		var text string

		if el := c.Find(e.selectors.Text).First(); el.Length() > 0 {
			text = domain.StripAttributionWith(InnerText(el), e.separator)
		}

		quotes = append(quotes, domain.Quote{Text: text})
	})

	return &Extraction{Quotes: quotes, Layout: layout}
}

// skippedElements never contribute rendered text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// blockElements start and end a line in rendered text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

// InnerText approximates the browser's rendered text of a selection:
// whitespace runs collapse to one space, <br> and block boundaries become
// line breaks, and script or style content is dropped.
func InnerText(s *goquery.Selection) string {
	var b strings.Builder

	for _, n := range s.Nodes {
		writeText(&b, n)
	}

	return tidyLines(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeCollapsed(b, n.Data)

		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}

		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		lineBreak(b)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	if block {
		lineBreak(b)
	}
}

func lineBreak(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

// writeCollapsed appends s with whitespace runs folded into one space. A run
// never starts right after a space or line break already in b, so runs that
// straddle a tag boundary still fold into one. U+00A0 is not folded, but
// tidyLines still trims it at line ends.
func writeCollapsed(b *strings.Builder, s string) {
	space := endsInSpace(b)

	for _, r := range s {
		if unicode.IsSpace(r) && r != '\u00a0' {
			if !space {
				b.WriteByte(' ')
			}

			space = true

			continue
		}

		space = false

		b.WriteRune(r)
	}
}

func endsInSpace(b *strings.Builder) bool {
	s := b.String()
	if s == "" {
		return false
	}

	last := s[len(s)-1]

	return last == ' ' || last == '\n'
}

// tidyLines trims each line and the whole text.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
