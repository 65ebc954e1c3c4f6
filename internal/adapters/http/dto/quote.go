package dto

import (
	"time"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
)

// QuoteResponse is one quote.
type QuoteResponse struct {
	Text string `json:"text"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text}
}

// QuoteListResponse is a page of the cached collection plus cache metadata.
type QuoteListResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	NextCursor string          `json:"nextCursor,omitempty"`
	HasMore    bool            `json:"hasMore"`
	FetchedAt  *time.Time      `json:"fetchedAt,omitempty"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
}

// NewQuoteResponses converts a slice of domain quotes.
func NewQuoteResponses(quotes domain.QuoteCollection) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = NewQuoteResponse(q)
	}

	return out
}
