// Package metrics exposes prometheus collectors for the HTTP surface and the
// broadcast loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mempool-backend/config"
)

// Provider is the metrics surface used across components.
type Provider interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncFetchFailures()
	IncBroadcasts()
	SetSubscribers(count int)
	IncCacheHits()
	IncCacheMisses()
}

type provider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchFailures   prometheus.Counter
	broadcasts      prometheus.Counter
	subscribers     prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewProvider registers the collectors, or returns a no-op provider when
// metrics are disabled.
func NewProvider(cfg config.MetricsConfig) Provider {
	if !cfg.Enabled {
		return &noop{}
	}

	return &provider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mempool_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mempool_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		fetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mempool_upstream_fetch_failures_total",
			Help: "Total number of failed upstream fetch cycles",
		}),

		broadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mempool_broadcasts_total",
			Help: "Total number of snapshot broadcasts to the websocket feed",
		}),

		subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mempool_ws_subscribers",
			Help: "Current number of connected websocket subscribers",
		}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mempool_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mempool_cache_misses_total",
			Help: "Total number of response cache misses",
		}),
	}
}

func (p *provider) IncRequestsTotal(endpoint string, status int) {
	p.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (p *provider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	p.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (p *provider) IncFetchFailures()         { p.fetchFailures.Inc() }
func (p *provider) IncBroadcasts()            { p.broadcasts.Inc() }
func (p *provider) SetSubscribers(count int)  { p.subscribers.Set(float64(count)) }
func (p *provider) IncCacheHits()             { p.cacheHits.Inc() }
func (p *provider) IncCacheMisses()           { p.cacheMisses.Inc() }

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

// noop is used when metrics are disabled.
type noop struct{}

func (n *noop) IncRequestsTotal(_ string, _ int)                 {}
func (n *noop) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noop) IncFetchFailures()                                {}
func (n *noop) IncBroadcasts()                                   {}
func (n *noop) SetSubscribers(_ int)                             {}
func (n *noop) IncCacheHits()                                    {}
func (n *noop) IncCacheMisses()                                  {}
