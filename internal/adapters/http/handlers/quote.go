package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-scraper/internal/app"
	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
)

// Messages of the flat /api/quote error body.
const (
	msgNoQuotes    = "No quotes found"
	msgFetchFailed = "Failed to fetch quote: "
)

// QuoteHandler serves quotes from the cache service.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// GetQuote handles GET /api/quote.
//
//	200 {"text": "..."}
//	404 {"error": "No quotes found"}
//	500 {"error": "Failed to fetch quote: <details>"}
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	ctx := c.Request.Context()

	quote, err := h.service.GetRandom(ctx)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, dto.MessageResponse{Error: msgNoQuotes})
	default:
		logging.FromContext(ctx).ErrorContext(ctx, "quote request failed", slog.Any("error", err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.MessageResponse{Error: msgFetchFailed + err.Error()})
	}
}

// GetRandomQuote handles GET /api/v1/quotes/random. Errors use the
// versioned envelope.
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	quote, err := h.service.GetRandom(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// ListQuotes handles GET /api/v1/quotes?limit=&cursor=. It returns a page
// of the cached collection in page order along with when it was fetched.
// A cursor from an earlier fetch is rejected.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	if _, err := h.service.GetAll(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	snap := h.service.Snapshot()
	generation := dto.Generation(snap.FetchedAt.UnixNano())

	offset, err := req.Offset(generation)
	if err != nil {
		if errors.Is(err, dto.ErrStaleCursor) || errors.Is(err, dto.ErrInvalidCursor) {
			err = fmt.Errorf("%w: %w", dto.ErrBinding, err)
		}

		dto.HandleError(c, err)

		return
	}

	page, next := dto.Paginate(dto.NewQuoteResponses(snap.Quotes), offset, req.GetLimit(), generation)

	resp := dto.QuoteListResponse{
		Items:      page,
		Total:      snap.Quotes.Len(),
		NextCursor: next,
		HasMore:    next != "",
	}

	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = &snap.FetchedAt
		resp.ExpiresAt = &snap.ExpiresAt
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterQuoteRoutes registers the versioned quote routes on rg.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.GET("/random", h.GetRandomQuote)
}
