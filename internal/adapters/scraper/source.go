package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

// Defaults for the source page render.
const (
	DefaultNavigationTimeout  = 60 * time.Second
	DefaultContentWaitTimeout = 30 * time.Second
)

const tracerName = "github.com/jsamuelsen/quote-scraper/internal/adapters/scraper"

// Config describes the page to scrape.
type Config struct {
	URL                string
	UserAgent          string
	NavigationTimeout  time.Duration
	ContentWaitTimeout time.Duration
	Selectors          Selectors
	Separator          string
}

// Source implements ports.QuoteSource by rendering the configured page and
// extracting quotes from it. It performs exactly one render per call.
type Source struct {
	renderer  ports.PageRenderer
	extractor *Extractor
	cfg       Config
	logger    *slog.Logger
}

// Ensure Source implements ports.QuoteSource.
var _ ports.QuoteSource = (*Source)(nil)

// NewSource creates a quote source backed by renderer.
func NewSource(renderer ports.PageRenderer, cfg Config, logger *slog.Logger) *Source {
	if renderer == nil {
		panic("scraper: renderer is required")
	}

	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}

	if cfg.ContentWaitTimeout < 0 {
		cfg.ContentWaitTimeout = DefaultContentWaitTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	extractor := NewExtractor(cfg.Selectors, cfg.Separator)
	cfg.Selectors = extractor.selectors
	cfg.Separator = extractor.separator

	return &Source{
		renderer:  renderer,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// FetchQuotes renders the page and extracts its quotes. Render failures are
// returned as *domain.RenderError. A page whose primary selector never
// appeared is still extracted; a warning is logged instead of failing.
func (s *Source) FetchQuotes(ctx context.Context) (domain.QuoteCollection, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scraper.FetchQuotes")
	defer span.End()

	logger := logging.FromContextOr(ctx, s.logger).With(
		slog.String("url", s.cfg.URL),
		slog.String("renderer", s.renderer.Name()),
	)

	page, err := s.renderer.Render(ctx, &ports.RenderRequest{
		URL:                s.cfg.URL,
		UserAgent:          s.cfg.UserAgent,
		WaitSelector:       s.cfg.Selectors.Primary,
		NavigationTimeout:  s.cfg.NavigationTimeout,
		ContentWaitTimeout: s.cfg.ContentWaitTimeout,
	})
	if err == nil && page == nil {
		err = errNilPage
	}

	if err != nil {
		if !domain.IsRenderFailure(err) {
			err = domain.NewRenderError(s.cfg.URL, "render", err)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")

		return nil, err
	}

	if !page.ContentReady {
		logger.WarnContext(ctx, "content may be incomplete",
			slog.String("selector", s.cfg.Selectors.Primary),
			slog.Duration("wait", s.cfg.ContentWaitTimeout),
		)
	}

	result, err := s.extractor.ExtractString(page.HTML)
	if err != nil {
		err = domain.NewRenderError(s.cfg.URL, "parse", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")

		return nil, err
	}

	span.SetAttributes(
		attribute.String("scraper.layout", string(result.Layout)),
		attribute.Int("scraper.quotes", result.Quotes.Len()),
		attribute.Bool("scraper.content_ready", page.ContentReady),
	)

	level := slog.LevelInfo
	if result.Layout == LayoutNone {
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "quotes extracted",
		slog.String("layout", string(result.Layout)),
		slog.Int("count", result.Quotes.Len()),
		slog.Duration("render_duration", page.Duration),
	)

	return result.Quotes, nil
}

// errNilPage guards against renderers that return neither a page nor an error.
var errNilPage = errors.New("renderer returned no page")
