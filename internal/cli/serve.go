package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/jsamuelsen/quote-scraper/internal/adapters/http"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/platform/telemetry"
)

type serveOptions struct {
	port int
	warm bool
}

func newServeCommand(root *rootOptions, info handlers.BuildInfo) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root, func(c *config.Config) {
				if cmd.Flags().Changed("port") {
					c.Server.Port = opts.port
				}
			})
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg, info, opts.warm)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", config.DefaultServerPort, "listen port (overrides PORT and config)")
	cmd.Flags().BoolVar(&opts.warm, "warm", false, "fetch quotes once at startup instead of on the first request")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, info handlers.BuildInfo, warm bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", info.Version),
		slog.String("commit", info.Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("engine", cfg.Scraper.Engine),
		slog.String("url", cfg.Scraper.URL),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	comp, err := newComponents(cfg, logger, reg)
	if err != nil {
		return err
	}

	server := httpadapter.New(&cfg.Server, logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.App.Name,
		Health:         handlers.NewHealthHandler(comp.health, info, reg),
		Quotes:         handlers.NewQuoteHandler(comp.service),
		RequestTimeout: cfg.Server.RequestTimeout,
		StaticDir:      cfg.Server.StaticDir,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	if warm {
		g.Go(func() error {
			quotes, err := comp.service.GetAll(gctx)
			if err != nil {
				logger.Warn("warm-up fetch failed", slog.Any("error", err))
				return nil
			}

			logger.Info("quote cache warmed", slog.Int("count", quotes.Len()))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
