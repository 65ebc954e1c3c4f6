package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-scraper/internal/app"
	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/mocks"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            3000,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		RequestTimeout:  5 * time.Second,
		MaxRequestSize:  1 << 20,
	}
}

type router struct {
	engine  *gin.Engine
	service *app.QuoteService
}

func newRouter(t *testing.T, source ports.QuoteSource, staticDir string) router {
	t.Helper()

	reg := prometheus.NewRegistry()
	service := app.NewQuoteService(app.QuoteServiceConfig{
		Source:  source,
		Logger:  discardLogger(),
		Metrics: app.NewCacheMetrics(reg),
	})

	registry := ports.NewHealthRegistry(time.Second)
	require.NoError(t, registry.Register(service))

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		Logger:         discardLogger(),
		ServiceName:    "quote-scraper-test",
		Health:         handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "abc", ""), reg),
		Quotes:         handlers.NewQuoteHandler(service),
		RequestTimeout: time.Second,
		StaticDir:      staticDir,
	})

	return router{engine: engine, service: service}
}

func (r router) get(target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	return w
}

func TestRouter_QuoteScenarios(t *testing.T) {
	quotes := domain.QuoteCollection{{Text: "one"}, {Text: "two"}, {Text: "three"}}

	t.Run("three quotes", func(t *testing.T) {
		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).Return(quotes, nil).Once()

		w := newRouter(t, source, "").get("/api/quote")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.QuoteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, []string{"one", "two", "three"}, resp.Text)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("no quotes", func(t *testing.T) {
		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).Return(nil, nil)

		w := newRouter(t, source, "").get("/api/quote")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"No quotes found"}`, w.Body.String())
	})

	t.Run("timeout then success", func(t *testing.T) {
		renderErr := domain.NewRenderError("https://example.com", "navigate", context.DeadlineExceeded)

		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).Return(nil, renderErr).Once()
		source.EXPECT().FetchQuotes(mock.Anything).Return(quotes, nil).Once()

		r := newRouter(t, source, "")

		w := r.get("/api/quote")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to fetch quote: ")

		assert.Equal(t, http.StatusServiceUnavailable, r.get("/-/ready").Code)

		w = r.get("/api/quote")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, http.StatusOK, r.get("/-/ready").Code)
	})
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(domain.QuoteCollection{{Text: "q"}}, nil).Once()

	r := newRouter(t, source, "")

	assert.Equal(t, http.StatusOK, r.get("/-/live").Code)
	assert.Equal(t, http.StatusOK, r.get("/-/ready").Code)
	assert.Equal(t, http.StatusOK, r.get("/-/build").Code)

	require.Equal(t, http.StatusOK, r.get("/api/quote").Code)
	require.Equal(t, http.StatusOK, r.get("/api/quote").Code)

	body := r.get("/-/metrics").Body.String()
	assert.Contains(t, body, "quote_scraper_cache_hits_total 1")
	assert.Contains(t, body, "quote_scraper_cache_misses_total 1")
	assert.Contains(t, body, "quote_scraper_cache_quotes 1")
}

func TestRouter_RequestDeadline(t *testing.T) {
	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(ctx context.Context) (domain.QuoteCollection, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline, "refresh must not inherit the request deadline")

		return domain.QuoteCollection{{Text: "q"}}, nil
	})

	assert.Equal(t, http.StatusOK, newRouter(t, source, "").get("/api/v1/quotes/random").Code)
}

func TestRouter_Static(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>quotes</html>"), 0o600))

	r := newRouter(t, mocks.NewMockQuoteSource(t), dir)

	w := r.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quotes")

	assert.Equal(t, http.StatusNotFound, r.get("/nope.txt").Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	var logs bytes.Buffer

	srv := New(testServerConfig(), slog.New(slog.NewTextHandler(&logs, nil)))
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, "pong", string(body))

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.True(t, strings.Contains(logs.String(), "HTTP server stopped"))
}

func TestServer_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:3000", New(testServerConfig(), discardLogger()).Addr())
}

func TestServer_MaxBodySize(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxRequestSize = 4

	srv := New(cfg, discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("too large")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
