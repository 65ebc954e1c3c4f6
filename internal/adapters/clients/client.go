package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quote-scraper/internal/adapters/clients"

	defaultTimeout      = 30 * time.Second
	defaultJitterFactor = 0.25

	// httpStatusCategoryDivisor turns 404 into the "4xx" metric label.
	httpStatusCategoryDivisor = 100
)

// Config configures an HTTP client instance.
type Config struct {
	// BaseURL is prepended to relative paths passed to Get. Absolute URLs are
	// used unchanged.
	BaseURL string

	// ServiceName identifies the remote site for logging and tracing.
	ServiceName string

	// Timeout is the per-attempt request timeout.
	// Total wall-clock time may exceed this value due to retries and backoff.
	Timeout time.Duration

	// Header is sent with every request, e.g. User-Agent.
	Header http.Header

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Logger is an optional logger. If nil, a default logger is used.
	Logger *slog.Logger
}

// Client is an instrumented HTTP client with retry and backoff, a circuit
// breaker, OpenTelemetry spans and metrics, and request/correlation ID
// propagation.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger
	cb     *CircuitBreaker
	tracer trace.Tracer

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New creates a new instrumented HTTP client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	c := *cfg
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	c.Header = c.Header.Clone()

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	c.Retry.MaxAttempts = max(c.Retry.MaxAttempts, 1)

	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = 1
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", c.ServiceName),
	)

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   c.Circuit.MaxFailures,
		Timeout:       c.Circuit.Timeout,
		HalfOpenLimit: c.Circuit.HalfOpenLimit,
	})
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.Transport.MaxIdleConns > 0 {
		transport.MaxIdleConns = c.Transport.MaxIdleConns
	}

	if c.Transport.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = c.Transport.MaxIdleConnsPerHost
	}

	if c.Transport.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = c.Transport.IdleConnTimeout
	}

	return &Client{
		http:            &http.Client{Timeout: c.Timeout, Transport: transport},
		cfg:             c,
		logger:          logger,
		cb:              cb,
		tracer:          otel.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// Get fetches target, which is either an absolute URL or a path relative to
// BaseURL. extra headers override the configured ones for this request.
func (c *Client) Get(ctx context.Context, target string, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(target), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range extra {
		req.Header[k] = append([]string(nil), vs...)
	}

	return c.Do(ctx, req)
}

// Do executes a request with the circuit breaker, retries, tracing and
// logging. Only bodiless requests, or requests with GetBody set, can be retried.
//
// 5xx responses and network errors are retried; other responses, including
// 4xx, are returned to the caller as-is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContextOr(ctx, c.logger).With(
		slog.String("downstream", c.cfg.ServiceName),
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
	)

	if !c.cb.Allow() {
		c.recordMetrics(ctx, req.Method, 0, time.Since(start), "circuit_open")
		logger.WarnContext(ctx, "request blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	c.injectHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method+" "+c.cfg.ServiceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.Redacted()),
			attribute.String("peer.service", c.cfg.ServiceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.attempt(ctx, req, logger)

	return c.finish(ctx, req, resp, err, span, logger, start)
}

// attempt runs the request up to Retry.MaxAttempts times.
func (c *Client) attempt(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for n := range c.cfg.Retry.MaxAttempts {
		if n > 0 {
			if err := c.sleep(ctx, n, logger); err != nil {
				return nil, err
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewinding body: %w", err)
				}

				req.Body = body
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil && !isRetryableError(err):
			return nil, err
		case err != nil:
			logger.DebugContext(ctx, "request failed with retryable error",
				slog.Int("attempt", n+1),
				slog.Any("error", err),
			)

			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			logger.DebugContext(ctx, "request failed with server error",
				slog.Int("attempt", n+1),
				slog.Int("status", resp.StatusCode),
			)

			_ = resp.Body.Close()
			lastErr = &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		default:
			return resp, nil
		}
	}

	return nil, lastErr
}

// sleep waits out the backoff before attempt n.
func (c *Client) sleep(ctx context.Context, n int, logger *slog.Logger) error {
	backoff := c.calculateBackoff(n)
	logger.DebugContext(ctx, "retrying request",
		slog.Int("attempt", n+1),
		slog.Duration("backoff", backoff),
	)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) finish(
	ctx context.Context,
	req *http.Request,
	resp *http.Response,
	err error,
	span trace.Span,
	logger *slog.Logger,
	start time.Time,
) (*http.Response, error) {
	duration := time.Since(start)

	if err != nil {
		c.cb.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recordMetrics(ctx, req.Method, 0, duration, "error")
		logger.ErrorContext(ctx, "request failed",
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)

		if c.cfg.Retry.MaxAttempts > 1 && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}

		return nil, err
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	category := fmt.Sprintf("%dxx", resp.StatusCode/httpStatusCategoryDivisor)
	c.recordMetrics(ctx, req.Method, resp.StatusCode, duration, category)

	logger.DebugContext(ctx, "request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// CircuitState returns the current state of the circuit breaker.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

// CircuitStats returns the circuit breaker's state details.
func (c *Client) CircuitStats() CircuitStats {
	return c.cb.Stats()
}

// injectHeaders applies configured headers and propagates request and
// correlation IDs. Headers already on the request win.
func (c *Client) injectHeaders(ctx context.Context, req *http.Request) {
	for k, vs := range c.cfg.Header {
		if _, set := req.Header[k]; !set {
			req.Header[k] = append([]string(nil), vs...)
		}
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}
}

func (c *Client) buildURL(target string) string {
	if strings.Contains(target, "://") || c.cfg.BaseURL == "" {
		return target
	}

	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	return c.cfg.BaseURL + target
}

// calculateBackoff returns initial * multiplier^n capped at MaxInterval,
// with symmetric jitter of ±JitterFactor.
func (c *Client) calculateBackoff(n int) time.Duration {
	backoff := float64(c.cfg.Retry.InitialInterval) * math.Pow(c.cfg.Retry.Multiplier, float64(n))

	if ceiling := float64(c.cfg.Retry.MaxInterval); ceiling > 0 && backoff > ceiling {
		backoff = ceiling
	}

	jitter := c.cfg.Retry.JitterFactor
	if jitter <= 0 {
		jitter = defaultJitterFactor
	}

	backoff += backoff * jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter needs no crypto randomness

	return time.Duration(backoff)
}

func (c *Client) recordMetrics(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("peer.service", c.cfg.ServiceName),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// isRetryableError reports whether err is a transient network failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
