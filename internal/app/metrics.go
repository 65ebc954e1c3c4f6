package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "quote_scraper"

// Refresh outcomes recorded on the refresh counter and duration histogram.
const (
	refreshSuccess = "success"
	refreshEmpty   = "empty"
	refreshError   = "error"
)

// CacheMetrics holds the Prometheus instruments for the quote cache.
type CacheMetrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	cachedQuotes    prometheus.Gauge
}

// NewCacheMetrics creates the cache instruments and registers them with reg.
// A nil reg leaves them unregistered.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	factory := promauto.With(reg)

	return &CacheMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads served from a fresh cached collection.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that found the cache empty or expired.",
		}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Source fetches by outcome.",
		}, []string{"result"}),
		refreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching quotes from the source.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		}, []string{"result"}),
		cachedQuotes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "quotes",
			Help:      "Number of quotes currently cached.",
		}),
	}
}

func (m *CacheMetrics) observeRefresh(result string, took time.Duration) {
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshDuration.WithLabelValues(result).Observe(took.Seconds())
}
