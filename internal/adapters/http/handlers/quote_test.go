package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-scraper/internal/app"
	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/mocks"
)

var threeQuotes = domain.QuoteCollection{
	{Text: "I am a god"},
	{Text: "My greatest pain in life is that I will never be able to see myself perform live."},
	{Text: "Believe in your flyness"},
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newQuoteRouter(t *testing.T, source *mocks.MockQuoteSource, clock *testClock) *gin.Engine {
	t.Helper()

	if clock == nil {
		clock = &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	}

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Source: source,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    clock.Now,
	})

	h := NewQuoteHandler(service)

	router := gin.New()
	router.GET("/api/quote", h.GetQuote)
	h.RegisterQuoteRoutes(router.Group("/api/v1"))

	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	return w
}

func TestGetQuote_ReturnsOneOfTheQuotes(t *testing.T) {
	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(threeQuotes, nil).Once()

	router := newQuoteRouter(t, source, nil)

	for range 10 {
		w := get(router, "/api/quote")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.QuoteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, threeQuotes, domain.Quote{Text: resp.Text})
	}
}

func TestGetQuote_NoQuotes(t *testing.T) {
	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(domain.QuoteCollection{}, nil)

	w := get(newQuoteRouter(t, source, nil), "/api/quote")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No quotes found"}`, w.Body.String())
}

func TestGetQuote_RenderFailureThenRecovery(t *testing.T) {
	renderErr := domain.NewRenderError("https://www.goodreads.com/author/quotes/1", "navigate", context.DeadlineExceeded)

	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(nil, renderErr).Once()
	source.EXPECT().FetchQuotes(mock.Anything).Return(threeQuotes, nil).Once()

	router := newQuoteRouter(t, source, nil)

	w := get(router, "/api/quote")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch quote: "+renderErr.Error(), body.Error)

	w = get(router, "/api/quote")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRandomQuote_Envelope(t *testing.T) {
	tests := []struct {
		name       string
		quotes     domain.QuoteCollection
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "ok", quotes: threeQuotes, wantStatus: http.StatusOK},
		{name: "empty", quotes: domain.QuoteCollection{}, wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeNotFound},
		{
			name:       "render failure",
			err:        domain.NewRenderError("https://example.com", "launch", errors.New("no chrome")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.ErrorCodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := mocks.NewMockQuoteSource(t)
			source.EXPECT().FetchQuotes(mock.Anything).Return(tt.quotes, tt.err)

			w := get(newQuoteRouter(t, source, nil), "/api/v1/quotes/random")
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantCode == "" {
				return
			}

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestListQuotes(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(threeQuotes, nil).Once()

	router := newQuoteRouter(t, source, clock)

	w := get(router, "/api/v1/quotes?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var first dto.QuoteListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	assert.Equal(t, 3, first.Total)
	assert.True(t, first.HasMore)
	assert.Equal(t, dto.NewQuoteResponses(threeQuotes[:2]), first.Items)
	require.NotNil(t, first.FetchedAt)
	require.NotNil(t, first.ExpiresAt)
	assert.True(t, first.FetchedAt.Equal(clock.now))
	assert.True(t, first.ExpiresAt.Equal(clock.now.Add(time.Hour)))

	w = get(router, "/api/v1/quotes?limit=2&cursor="+first.NextCursor)
	require.Equal(t, http.StatusOK, w.Code)

	var second dto.QuoteListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, dto.NewQuoteResponses(threeQuotes[2:]), second.Items)
}

func TestListQuotes_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "limit too large", query: "?limit=1000"},
		{name: "limit not a number", query: "?limit=abc"},
		{name: "garbage cursor", query: "?cursor=%21%21"},
		{name: "stale cursor", query: "?cursor=" + dto.EncodeCursor(dto.CursorData{Offset: 1, Generation: "old"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := mocks.NewMockQuoteSource(t)
			source.EXPECT().FetchQuotes(mock.Anything).Return(threeQuotes, nil).Maybe()

			w := get(newQuoteRouter(t, source, nil), "/api/v1/quotes"+tt.query)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, dto.ErrorCodeValidation, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Details)
		})
	}
}

func TestListQuotes_EmptyCollection(t *testing.T) {
	source := mocks.NewMockQuoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).Return(domain.QuoteCollection{}, nil)

	w := get(newQuoteRouter(t, source, nil), "/api/v1/quotes")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.QuoteListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Items)
	assert.False(t, resp.HasMore)
}
