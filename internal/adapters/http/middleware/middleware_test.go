package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: logging.LevelTrace}))
}

func TestIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(context.Context) string
	}{
		{
			name:       "request id",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    RequestIDFromContext,
		},
		{
			name:       "correlation id",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    CorrelationIDFromContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" generated", func(t *testing.T) {
			var ginID, ctxID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/quote", func(c *gin.Context) {
				ginID = tt.fromGin(c)
				ctxID = tt.fromCtx(c.Request.Context())
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

			_, err := uuid.Parse(ginID)
			require.NoError(t, err)
			assert.Equal(t, ginID, ctxID)
			assert.Equal(t, ginID, w.Header().Get(tt.header))
		})

		t.Run(tt.name+" propagated", func(t *testing.T) {
			var ginID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/quote", func(c *gin.Context) {
				ginID = tt.fromGin(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/quote", nil)
			req.Header.Set(tt.header, "upstream-123")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, "upstream-123", ginID)
			assert.Equal(t, "upstream-123", w.Header().Get(tt.header))
		})

		t.Run(tt.name+" oversized replaced", func(t *testing.T) {
			var ginID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/quote", func(c *gin.Context) {
				ginID = tt.fromGin(c)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/quote", nil)
			req.Header.Set(tt.header, strings.Repeat("x", maxIDLength+1))
			router.ServeHTTP(httptest.NewRecorder(), req)

			_, err := uuid.Parse(ginID)
			assert.NoError(t, err)
		})
	}
}

func TestIDsFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck // nil context is handled

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
}

func TestGetIDs_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestRequestID_EnrichesLogger(t *testing.T) {
	var buf bytes.Buffer

	prev := logging.FromContext(context.Background())
	logging.SetDefault(bufferLogger(&buf))
	t.Cleanup(func() { logging.SetDefault(prev) })

	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/quote", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("handling")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/quote", nil)
	req.Header.Set(HeaderRequestID, "req-log-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"req-log-1"`)
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
		wantLog   bool
	}{
		{name: "success", path: "/api/quote", status: http.StatusOK, wantLevel: "INFO", wantLog: true},
		{name: "not found", path: "/api/quote", status: http.StatusNotFound, wantLevel: "WARN", wantLog: true},
		{name: "server error", path: "/api/quote", status: http.StatusInternalServerError, wantLevel: "ERROR", wantLog: true},
		{name: "probe skipped", path: "/-/live", status: http.StatusOK, wantLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			router := gin.New()
			router.Use(Logging(bufferLogger(&buf), "/-/"))
			router.GET(tt.path, func(c *gin.Context) {
				c.String(tt.status, "body")
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.InDelta(t, float64(tt.status), entry["status"], 0)
			assert.InDelta(t, float64(len("body")), entry["bytes"], 0)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer

	router := gin.New()
	router.Use(Recovery(bufferLogger(&buf)))
	router.GET("/api/quote", func(_ *gin.Context) {
		panic("selector exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "selector exploded")
}

func TestRecovery_AfterWrite(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(bufferLogger(&bytes.Buffer{})))
	router.GET("/api/quote", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestRecovery_NoPanic(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(bufferLogger(&bytes.Buffer{})))
	router.GET("/api/quote", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeadline(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "sets deadline", timeout: time.Minute, wantDeadline: true},
		{name: "zero disables", timeout: 0, wantDeadline: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hasDeadline bool

			router := gin.New()
			router.Use(Deadline(tt.timeout))
			router.GET("/api/quote", func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quote", nil))

			assert.Equal(t, tt.wantDeadline, hasDeadline)
		})
	}
}

func TestDeadline_Expires(t *testing.T) {
	var ctxErr error

	router := gin.New()
	router.Use(Deadline(10 * time.Millisecond))
	router.GET("/api/quote", func(c *gin.Context) {
		<-c.Request.Context().Done()
		ctxErr = c.Request.Context().Err()
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}
