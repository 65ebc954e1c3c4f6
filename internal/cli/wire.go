package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/renderer"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/scraper"
	"github.com/jsamuelsen/quote-scraper/internal/app"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

// loadConfig loads the profile, applies overrides and validates the result.
func loadConfig(opts *rootOptions, overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadFrom(opts.configDir, opts.profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	for _, apply := range overrides {
		apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
}

// newRenderer builds the page renderer selected by scraper.engine.
func newRenderer(cfg *config.Config, logger *slog.Logger) (ports.PageRenderer, error) {
	switch cfg.Scraper.Engine {
	case config.EngineBrowser:
		return renderer.NewBrowser(renderer.BrowserConfig{
			Headless:  cfg.Scraper.Browser.Headless,
			ExecPath:  cfg.Scraper.Browser.ExecPath,
			NoSandbox: cfg.Scraper.Browser.NoSandbox,

			LaunchTimeout:   cfg.Scraper.Browser.LaunchTimeout,
			SnapshotTimeout: cfg.Scraper.Browser.SnapshotTimeout,
		}, logger), nil

	case config.EngineStatic:
		client, err := clients.New(&clients.Config{
			ServiceName: "quote-page",
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating page client: %w", err)
		}

		return renderer.NewStatic(client, logger), nil

	default:
		return nil, fmt.Errorf("unknown scraper engine %q", cfg.Scraper.Engine)
	}
}

func newSource(cfg *config.Config, r ports.PageRenderer, logger *slog.Logger) *scraper.Source {
	return scraper.NewSource(r, scraper.Config{
		URL:                cfg.Scraper.URL,
		UserAgent:          cfg.Scraper.UserAgent,
		NavigationTimeout:  cfg.Scraper.NavigationTimeout,
		ContentWaitTimeout: cfg.Scraper.ContentWaitTimeout,
		Separator:          cfg.Scraper.Separator,
		Selectors: scraper.Selectors{
			Primary:  cfg.Scraper.Selectors.Primary,
			Fallback: cfg.Scraper.Selectors.Fallback,
			Text:     cfg.Scraper.Selectors.Text,
		},
	}, logger)
}

// components is the object graph shared by the serve command and tests.
type components struct {
	renderer ports.PageRenderer
	service  *app.QuoteService
	health   *ports.DefaultHealthRegistry
}

func newComponents(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*components, error) {
	r, err := newRenderer(cfg, logger)
	if err != nil {
		return nil, err
	}

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Source:  newSource(cfg, r, logger),
		TTL:     cfg.Cache.TTL,
		Logger:  logger,
		Metrics: app.NewCacheMetrics(reg),
	})

	health := ports.NewHealthRegistry(ports.DefaultCheckTimeout)

	checkers := []ports.HealthChecker{service}
	if hc, ok := r.(ports.HealthChecker); ok {
		checkers = append(checkers, hc)
	}

	for _, checker := range checkers {
		if err := health.Register(checker); err != nil {
			return nil, fmt.Errorf("registering %s health check: %w", checker.Name(), err)
		}
	}

	return &components{renderer: r, service: service, health: health}, nil
}
