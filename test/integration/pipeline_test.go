//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/renderer"
	"github.com/jsamuelsen/quote-scraper/internal/adapters/scraper"
	"github.com/jsamuelsen/quote-scraper/internal/app"
	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
)

const slowPage = `<html><body>
<div class="quote"><div class="quoteText">“One” ― Kanye West</div></div>
<div class="quote"><div class="quoteText">“Two” ― Kanye West</div></div>
</body></html>`

func newPipeline(t *testing.T, pageURL string) *app.QuoteService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := clients.New(&clients.Config{
		ServiceName: "quote-page",
		Timeout:     5 * time.Second,
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Circuit:     config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Second, HalfOpenLimit: 1},
		Logger:      logger,
	})
	require.NoError(t, err)

	source := scraper.NewSource(renderer.NewStatic(client, logger), scraper.Config{URL: pageURL}, logger)

	return app.NewQuoteService(app.QuoteServiceConfig{Source: source, Logger: logger})
}

func TestPipeline_ConcurrentReadersShareOneFetch(t *testing.T) {
	var fetches atomic.Int64

	release := make(chan struct{})
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		<-release
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, slowPage)
	}))
	defer page.Close()

	service := newPipeline(t, page.URL)

	const readers = 20

	var (
		wg      sync.WaitGroup
		results = make([]domain.QuoteCollection, readers)
		errs    = make([]error, readers)
	)

	for i := range readers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i], errs[i] = service.GetAll(context.Background())
		}()
	}

	// Let every reader reach the refresh before the page answers.
	require.Eventually(t, func() bool { return fetches.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())

	for i := range readers {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.QuoteCollection{{Text: "“One”"}, {Text: "“Two”"}}, results[i])
	}
}

func TestPipeline_CanceledCallerDoesNotAbortFetch(t *testing.T) {
	release := make(chan struct{})
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = io.WriteString(w, slowPage)
	}))
	defer page.Close()

	service := newPipeline(t, page.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := service.GetAll(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	require.Eventually(t, func() bool {
		return service.Snapshot().Quotes.Len() == 2
	}, 5*time.Second, 10*time.Millisecond)

	quote, err := service.GetRandom(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []string{"“One”", "“Two”"}, quote.Text)
}
