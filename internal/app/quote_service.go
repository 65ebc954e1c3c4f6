// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/logging"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

// DefaultCacheTTL is how long a fetched collection is served before the next
// read triggers a refresh.
const DefaultCacheTTL = time.Hour

const (
	healthCheckName = "quote-cache"
	refreshKey      = "quotes"
	tracerName      = "github.com/jsamuelsen/quote-scraper/internal/app"
)

// cacheState is an immutable snapshot of one successful fetch.
type cacheState struct {
	quotes    domain.QuoteCollection
	fetchedAt time.Time
}

// CacheSnapshot is a read-only view of the cache.
type CacheSnapshot struct {
	Quotes    domain.QuoteCollection
	FetchedAt time.Time // zero if no fetch has succeeded yet
	ExpiresAt time.Time // zero if no fetch has succeeded yet
	LastError error     // error of the most recent refresh, nil if it succeeded
}

// QuoteService owns the process-wide quote cache. Reads within the TTL are
// served from memory; the first read after expiry fetches from the source.
// Concurrent readers that find the cache stale share a single fetch.
type QuoteService struct {
	source  ports.QuoteSource
	ttl     time.Duration
	logger  *slog.Logger
	metrics *CacheMetrics
	tracer  trace.Tracer
	now     func() time.Time
	intn    func(n int) int

	state   atomic.Pointer[cacheState]
	lastErr atomic.Pointer[error]
	group   singleflight.Group
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	// Source fetches quotes from the external page. Required.
	Source ports.QuoteSource

	// TTL defaults to DefaultCacheTTL.
	TTL time.Duration

	Logger  *slog.Logger
	Metrics *CacheMetrics

	// Now and Intn replace the clock and random index source in tests.
	Now  func() time.Time
	Intn func(n int) int
}

// NewQuoteService creates a new quote service with an empty cache.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Source == nil {
		panic("app: QuoteServiceConfig.Source is required")
	}

	s := &QuoteService{
		source:  cfg.Source,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer(tracerName),
		now:     cfg.Now,
		intn:    cfg.Intn,
	}

	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.metrics == nil {
		s.metrics = NewCacheMetrics(nil)
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.intn == nil {
		s.intn = rand.IntN
	}

	return s
}

// GetAll returns the cached collection if it is non-empty and younger than
// the TTL. Otherwise it fetches from the source and replaces the cache with
// the result, even an empty one. On fetch failure the error is returned and
// the previous cache is kept.
//
// The fetch is detached from ctx cancellation so a disconnecting caller does
// not abort a render other readers are waiting on; ctx still bounds how long
// this caller waits.
func (s *QuoteService) GetAll(ctx context.Context) (domain.QuoteCollection, error) {
	if st, ok := s.fresh(); ok {
		s.metrics.hits.Inc()
		logging.FromContextOr(ctx, s.logger).Log(ctx, logging.LevelTrace, "quote cache hit",
			slog.Int("count", st.quotes.Len()))

		return slices.Clone(st.quotes), nil
	}

	s.metrics.misses.Inc()

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(refreshKey, func() (any, error) {
		return s.refresh(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		st, _ := res.Val.(*cacheState)

		return slices.Clone(st.quotes), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetRandom returns one quote chosen uniformly from the current collection.
// It returns a *domain.NotFoundError when the collection is empty.
func (s *QuoteService) GetRandom(ctx context.Context) (domain.Quote, error) {
	quotes, err := s.GetAll(ctx)
	if err != nil {
		return domain.Quote{}, err
	}

	if quotes.IsEmpty() {
		return domain.Quote{}, domain.NewEmptyResultError()
	}

	return quotes[s.intn(len(quotes))], nil
}

// Snapshot returns the cache contents without fetching.
func (s *QuoteService) Snapshot() CacheSnapshot {
	var snap CacheSnapshot

	if st := s.state.Load(); st != nil {
		snap.Quotes = slices.Clone(st.quotes)
		snap.FetchedAt = st.fetchedAt
		snap.ExpiresAt = st.fetchedAt.Add(s.ttl)
	}

	if errp := s.lastErr.Load(); errp != nil {
		snap.LastError = *errp
	}

	return snap
}

// Name implements ports.HealthChecker.
func (s *QuoteService) Name() string {
	return healthCheckName
}

// Check implements ports.HealthChecker. The cache is unhealthy only when the
// last refresh failed and there is nothing cached to serve. It never fetches.
func (s *QuoteService) Check(_ context.Context) error {
	snap := s.Snapshot()
	if snap.LastError != nil && snap.Quotes.IsEmpty() {
		return domain.NewUnavailableError(healthCheckName, snap.LastError.Error())
	}

	return nil
}

func (s *QuoteService) fresh() (*cacheState, bool) {
	st := s.state.Load()
	if st == nil || st.quotes.IsEmpty() {
		return nil, false
	}

	return st, s.now().Sub(st.fetchedAt) < s.ttl
}

// refresh runs at most once at a time per service.
func (s *QuoteService) refresh(ctx context.Context) (*cacheState, error) {
	// A flight that finished between the caller's staleness check and this
	// one joining the group has already refreshed the cache.
	if st, ok := s.fresh(); ok {
		return st, nil
	}

	ctx, span := s.tracer.Start(ctx, "QuoteService.refresh")
	defer span.End()

	logger := logging.FromContextOr(ctx, s.logger)
	logger.InfoContext(ctx, "refreshing quote cache")

	start := s.now()
	quotes, err := s.source.FetchQuotes(ctx)
	took := s.now().Sub(start)

	if err != nil {
		s.lastErr.Store(&err)
		s.metrics.observeRefresh(refreshError, took)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		logger.ErrorContext(ctx, "quote refresh failed",
			slog.Any("error", err),
			slog.Duration("duration", took),
		)

		return nil, err
	}

	st := &cacheState{quotes: slices.Clip(quotes), fetchedAt: s.now()}
	s.state.Store(st)
	s.lastErr.Store(nil)
	s.metrics.cachedQuotes.Set(float64(quotes.Len()))

	result := refreshSuccess
	if quotes.IsEmpty() {
		result = refreshEmpty
	}

	s.metrics.observeRefresh(result, took)
	span.SetAttributes(attribute.Int("quotes.count", quotes.Len()))
	logger.InfoContext(ctx, "quote cache refreshed",
		slog.Int("count", quotes.Len()),
		slog.Duration("duration", took),
	)

	return st, nil
}
