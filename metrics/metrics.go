package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts HTTP requests by status code, method and the
	// routing rule that terminated them
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panda_edge_http_requests_total",
		Help: "Total number of HTTP requests served, by code, method and route",
	},
		[]string{"code", "method", "route"},
	)

	// MediaCacheHit counts media path resolutions answered from the cache
	MediaCacheHit = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panda_edge_media_cache_hit",
		Help: "The number of media path resolutions served from the cache",
	})

	// MediaCacheMiss counts media path resolutions that hit the filesystem
	MediaCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panda_edge_media_cache_miss",
		Help: "The number of media path resolutions that fell through to the filesystem",
	})

	// BackendProxyErrors counts requests that failed to reach the
	// application socket
	BackendProxyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panda_edge_backend_proxy_errors_total",
		Help: "The number of proxied requests that failed against the application socket",
	})

	// BodyLimitRejections counts uploads rejected for exceeding the
	// request body cap
	BodyLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panda_edge_body_limit_rejections_total",
		Help: "The number of requests rejected for exceeding the maximum body size",
	})

	// RateLimitBlockedCount counts requests rejected by the source-IP
	// rate limiter
	RateLimitBlockedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panda_edge_rate_limit_blocked_total",
		Help: "The number of requests blocked by the rate limiter",
	})

	// LimitListenerMaxConns reports the configured connection limit
	LimitListenerMaxConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "panda_edge_limit_listener_max_conns",
		Help: "The maximum number of connections allowed across all listeners",
	})

	// LimitListenerConcurrentConns tracks the number of connections
	// currently being served
	LimitListenerConcurrentConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "panda_edge_limit_listener_concurrent_conns",
		Help: "The number of connections currently being served",
	})
)

// MustRegister collectors with the default prometheus registerer
func MustRegister() {
	prometheus.MustRegister(
		RequestsTotal,
		MediaCacheHit,
		MediaCacheMiss,
		BackendProxyErrors,
		BodyLimitRejections,
		RateLimitBlockedCount,
		LimitListenerMaxConns,
		LimitListenerConcurrentConns,
	)
}
