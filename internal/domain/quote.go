// Package domain contains core business entities and rules.
package domain

import "strings"

// AttributionSeparator divides a quote's text from its attribution on the
// source page ("“text” ― Author, Book").
const AttributionSeparator = "―"

// Quote is a single excerpt scraped from the source page.
// It has no identity beyond its text; duplicates are permitted.
type Quote struct {
	// Text is the excerpt with the attribution removed. It may be empty when
	// the source container had no text element.
	Text string
}

// QuoteCollection is the ordered result of one fetch cycle.
// Order follows the source document.
type QuoteCollection []Quote

// Len returns the number of quotes in the collection.
func (c QuoteCollection) Len() int {
	return len(c)
}

// IsEmpty reports whether the collection holds no quotes.
func (c QuoteCollection) IsEmpty() bool {
	return len(c) == 0
}

// StripAttribution returns the portion of raw before the first attribution
// separator, trimmed of surrounding whitespace. Text without a separator is
// returned trimmed.
func StripAttribution(raw string) string {
	return StripAttributionWith(raw, AttributionSeparator)
}

// StripAttributionWith is StripAttribution with a custom separator.
// An empty separator only trims.
func StripAttributionWith(raw, sep string) string {
	if sep != "" {
		raw, _, _ = strings.Cut(raw, sep)
	}

	return strings.TrimSpace(raw)
}
