package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncRefreshTotal(source string, outcome string)
	ObserveFetchDuration(source string, duration time.Duration)
	IncAlertsFired()
	IncHistoryConflicts()
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	refreshTotal        *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	alertsFired         prometheus.Counter
	historyConflicts    prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncRefreshTotal(source string, outcome string) {
	m.refreshTotal.WithLabelValues(source, outcome).Inc()
}

func (m *MetricsProvider) ObserveFetchDuration(source string, duration time.Duration) {
	m.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncAlertsFired() {
	m.alertsFired.Inc()
}

func (m *MetricsProvider) IncHistoryConflicts() {
	m.historyConflicts.Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, service services.TrackerServiceInterface) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pw_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pw_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pw_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pw_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pw_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		refreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pw_refresh_total",
			Help: "Total number of product refresh attempts by source and outcome",
		}, []string{"source", "outcome"}),

		fetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pw_fetch_duration_seconds",
			Help:    "Page fetch duration in seconds per source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		alertsFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pw_alerts_fired_total",
			Help: "Total number of price drop alerts fired",
		}),

		historyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pw_history_conflicts_total",
			Help: "Total number of conflicting price history writes",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pw_tracked_products",
		Help: "Current number of tracked products",
	}, func() float64 {
		return float64(service.TrackedCount())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pw_dormant_products",
		Help: "Current number of dormant products",
	}, func() float64 {
		return float64(service.DormantCount())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncRefreshTotal(_ string, _ string)               {}
func (n *noopMetrics) ObserveFetchDuration(_ string, _ time.Duration)   {}
func (n *noopMetrics) IncAlertsFired()                                  {}
func (n *noopMetrics) IncHistoryConflicts()                             {}
