// Package renderer implements ports.PageRenderer.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

// DefaultMaxBodyBytes caps the size of a statically fetched page.
const DefaultMaxBodyBytes = 8 << 20

const staticName = "static"

// Static fetches pages with a plain HTTP GET. Scripts are not executed, so it
// only sees content the server renders. It reuses the instrumented client for
// retries and circuit breaking.
type Static struct {
	client  *clients.Client
	maxBody int64
	logger  *slog.Logger
}

var (
	_ ports.PageRenderer  = (*Static)(nil)
	_ ports.HealthChecker = (*Static)(nil)
)

// NewStatic creates a static renderer over client.
func NewStatic(client *clients.Client, logger *slog.Logger) *Static {
	if client == nil {
		panic("renderer: client is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Static{client: client, maxBody: DefaultMaxBodyBytes, logger: logger}
}

// Name implements ports.PageRenderer and ports.HealthChecker.
func (s *Static) Name() string {
	return "renderer-" + staticName
}

// Render implements ports.PageRenderer. ContentReady reports whether
// WaitSelector matches the fetched document.
func (s *Static) Render(ctx context.Context, req *ports.RenderRequest) (*ports.RenderedPage, error) {
	start := time.Now()

	if req.NavigationTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, req.NavigationTimeout)
		defer cancel()
	}

	header := http.Header{"Accept": {"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"}}
	if req.UserAgent != "" {
		header.Set("User-Agent", req.UserAgent)
	}

	resp, err := s.client.Get(ctx, req.URL, header)
	if err != nil {
		return nil, domain.NewRenderError(req.URL, "navigate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, domain.NewRenderError(req.URL, "navigate",
			&clients.StatusError{URL: req.URL, StatusCode: resp.StatusCode})
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, s.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, domain.NewRenderError(req.URL, "snapshot", fmt.Errorf("detecting charset: %w", err))
	}

	markup, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.NewRenderError(req.URL, "snapshot", fmt.Errorf("reading body: %w", err))
	}

	ready := true

	if req.WaitSelector != "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
		if err != nil {
			return nil, domain.NewRenderError(req.URL, "snapshot", fmt.Errorf("parsing document: %w", err))
		}

		ready = doc.Find(req.WaitSelector).Length() > 0
	}

	page := &ports.RenderedPage{
		URL:          resp.Request.URL.String(),
		HTML:         string(markup),
		ContentReady: ready,
		Duration:     time.Since(start),
	}

	logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "page fetched",
		slog.String("url", page.URL),
		slog.Int("bytes", len(markup)),
		slog.Bool("content_ready", ready),
		slog.Duration("duration", page.Duration),
	)

	return page, nil
}

// Check implements ports.HealthChecker. It reports the client's circuit
// breaker and never fetches.
func (s *Static) Check(_ context.Context) error {
	stats := s.client.CircuitStats()
	if stats.State != clients.StateOpen {
		return nil
	}

	return domain.NewUnavailableError(s.Name(),
		"circuit open until "+stats.RetryAt.UTC().Format(time.RFC3339))
}
