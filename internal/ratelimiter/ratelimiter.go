package ratelimiter

import (
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/pandaproject/edge/internal/httperrors"
	"github.com/pandaproject/edge/internal/logging"
	"github.com/pandaproject/edge/internal/request"
	"github.com/pandaproject/edge/metrics"
)

// sourceIPTTL evicts buckets for sources that have gone quiet.
const sourceIPTTL = 5 * time.Minute

// RateLimiter hands out request tokens per source IP.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
}

// New creates a RateLimiter allowing perSecond requests with the given burst
// per source IP.
func New(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: gocache.New(sourceIPTTL, 10*time.Minute),
	}
}

func (rl *RateLimiter) limiterForIP(ip string) *rate.Limiter {
	if cached, found := rl.buckets.Get(ip); found {
		return cached.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets.SetDefault(ip, limiter)

	return limiter
}

// Allow reports whether a request from the given source IP may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiterForIP(ip).Allow()
}

// NewMiddleware enforces the limiter on every request passing through.
// perSecond == 0 disables limiting entirely.
func NewMiddleware(handler http.Handler, perSecond float64, burst int) http.Handler {
	if perSecond == 0 {
		return handler
	}

	rl := New(perSecond, burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sourceIP := request.GetRemoteAddrWithoutPort(r)

		if !rl.Allow(sourceIP) {
			metrics.RateLimitBlockedCount.Inc()
			logging.LogRequest(r).WithField("source_ip", sourceIP).Info("request rate limited")
			httperrors.Serve429(w)

			return
		}

		handler.ServeHTTP(w, r)
	})
}
