package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-scraper/internal/platform/telemetry"
)

// probePrefix is the route prefix of the health and metrics endpoints.
const probePrefix = "/-"

// RouterConfig contains what SetupRouter needs to wire the routes.
type RouterConfig struct {
	Logger      *slog.Logger
	ServiceName string

	Health *handlers.HealthHandler
	Quotes *handlers.QuoteHandler

	// RequestTimeout is the deadline of /api requests. Zero disables it.
	RequestTimeout time.Duration

	// StaticDir is served at "/" when it exists.
	StaticDir string
}

// SetupRouter installs the middleware chain and routes on engine.
//
// Middleware order:
//  1. Recovery
//  2. Request ID, then correlation ID
//  3. OpenTelemetry tracing and HTTP metrics
//  4. Request logging (probes skipped)
//
// Routes:
//
//	/-/live, /-/ready, /-/build, /-/metrics
//	/api/quote                  random quote, flat error body
//	/api/v1/quotes[/random]     versioned API, error envelope
//	/                           static front end, if configured
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(middleware.Recovery(cfg.Logger), middleware.RequestID(), middleware.CorrelationID())
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(middleware.Logging(cfg.Logger, probePrefix+"/"))

	if cfg.Health != nil {
		cfg.Health.RegisterHealthRoutes(engine.Group(probePrefix))
	}

	if cfg.Quotes != nil {
		api := engine.Group("/api", middleware.Deadline(cfg.RequestTimeout))
		api.GET("/quote", cfg.Quotes.GetQuote)
		cfg.Quotes.RegisterQuoteRoutes(api.Group("/v1"))
	}

	if handlers.RegisterStatic(engine, cfg.StaticDir) {
		cfg.Logger.Debug("serving static files", slog.String("dir", cfg.StaticDir))
	}
}
