// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, RenderError)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
)

// QuoteSource produces a fresh collection of quotes from the external page.
// Each call performs a full fetch cycle; callers are responsible for caching.
//
// Implementations return a *domain.RenderError when the page cannot be loaded
// and never retry internally. A successful call may return an empty collection.
type QuoteSource interface {
	FetchQuotes(ctx context.Context) (domain.QuoteCollection, error)
}

// PageRenderer loads a URL and returns the resulting document markup.
// Implementations range from a headless browser that executes JavaScript to a
// plain HTTP fetch.
type PageRenderer interface {
	// Name identifies the renderer in logs and health checks.
	Name() string

	// Render loads the page described by req. The rendering context must be
	// released before Render returns, on success and on every failure path.
	Render(ctx context.Context, req *RenderRequest) (*RenderedPage, error)
}

// RenderRequest describes a single page render.
type RenderRequest struct {
	// URL is the page to load.
	URL string

	// UserAgent is sent as the browser identity.
	UserAgent string

	// WaitSelector is awaited after navigation on a best-effort basis.
	// Empty disables the wait.
	WaitSelector string

	// NavigationTimeout bounds loading the page until the network settles.
	NavigationTimeout time.Duration

	// ContentWaitTimeout bounds the wait for WaitSelector.
	ContentWaitTimeout time.Duration
}

// RenderedPage is the document produced by a render.
type RenderedPage struct {
	// URL is the final URL after redirects, when known.
	URL string

	// HTML is the serialized document.
	HTML string

	// ContentReady is false when WaitSelector did not appear in time.
	// The page is still usable; its content may be incomplete.
	ContentReady bool

	// Duration is how long the render took.
	Duration time.Duration
}
