package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/pandaproject/edge/internal/backend"
	"github.com/pandaproject/edge/internal/customheaders"
	"github.com/pandaproject/edge/internal/healthcheck"
	"github.com/pandaproject/edge/internal/logging"
	"github.com/pandaproject/edge/internal/media"
	"github.com/pandaproject/edge/internal/ratelimiter"
	"github.com/pandaproject/edge/internal/redirect"
	"github.com/pandaproject/edge/internal/request"
	"github.com/pandaproject/edge/internal/urilimiter"
	"github.com/pandaproject/edge/metrics"
)

type theApp struct {
	appConfig

	media *media.Handler

	// secure is the rule table behind TLS: media prefix first, everything
	// else to the application socket. insecure is what plaintext listeners
	// serve: the permanent redirect, or the same rule table when redirects
	// are turned off.
	secure   http.Handler
	insecure http.Handler
}

func newApp(config appConfig) (*theApp, error) {
	a := &theApp{appConfig: config}

	mediaHandler, err := media.NewHandler(config.MediaPrefix, config.MediaRoot, config.MediaCacheTTL)
	if err != nil {
		return nil, err
	}
	a.media = mediaHandler

	backendProxy := backend.NewProxy(config.BackendSocket, config.MaxBodySize, config.BackendTimeout)

	proxyChain, err := logging.AccessLogger(instrumentRoute("proxy", backendProxy), config.LogFormat)
	if err != nil {
		return nil, err
	}

	// the media branch is mounted before the access logger on purpose:
	// media requests produce no access-log entries
	mediaChain := instrumentRoute("media", mediaHandler)
	if !config.DisableCrossOriginRequests {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		})
		mediaChain = c.Handler(mediaChain)
	}

	ruleTable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mediaHandler.Matches(r) {
			mediaChain.ServeHTTP(w, r)
			return
		}

		proxyChain.ServeHTTP(w, r)
	})

	var secure http.Handler = ruleTable
	secure = ratelimiter.NewMiddleware(secure, config.RateLimitPerSecond, config.RateLimitBurst)
	secure = urilimiter.NewMiddleware(secure, config.MaxURILength)
	secure = customheaders.NewMiddleware(secure, config.CustomHeaders)
	secure = healthcheck.NewMiddleware(secure, config.StatusPath)
	a.secure = secure

	if !config.RedirectHTTP {
		a.insecure = secure
		return a, nil
	}

	redirectChain, err := logging.AccessLogger(instrumentRoute("redirect", redirect.NewHandler(config.HTTPSPort)), config.LogFormat)
	if err != nil {
		return nil, err
	}
	a.insecure = healthcheck.NewMiddleware(redirectChain, config.StatusPath)

	return a, nil
}

func instrumentRoute(route string, handler http.Handler) http.Handler {
	counter := metrics.RequestsTotal.MustCurryWith(prometheus.Labels{"route": route})
	return promhttp.InstrumentHandlerCounter(counter, handler)
}

func (a *theApp) serveSecure(w http.ResponseWriter, r *http.Request) {
	r.URL.Scheme = request.SchemeHTTPS
	a.secure.ServeHTTP(w, r)
}

func (a *theApp) serveInsecure(w http.ResponseWriter, r *http.Request) {
	r.URL.Scheme = request.SchemeHTTP
	a.insecure.ServeHTTP(w, r)
}

// serveProxied handles listeners behind a PROXY-protocol load balancer:
// handlers.ProxyHeaders has already rewritten the scheme and remote address
// from the forwarded headers by the time this runs.
func (a *theApp) serveProxied(w http.ResponseWriter, r *http.Request) {
	if request.IsHTTPS(r) {
		a.secure.ServeHTTP(w, r)
		return
	}

	r.URL.Scheme = request.SchemeHTTP
	a.insecure.ServeHTTP(w, r)
}

func (a *theApp) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tlsConfig *tls.Config
	if len(a.ListenHTTPS) > 0 {
		var err error
		tlsConfig, err = tlsconfigFromApp(&a.appConfig)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, addr := range a.ListenHTTP {
		config := listenerConfig{addr: addr, handler: http.HandlerFunc(a.serveInsecure)}
		g.Go(func() error { return a.listenAndServe(ctx, config) })
	}

	for _, addr := range a.ListenHTTPS {
		config := listenerConfig{addr: addr, tlsConfig: tlsConfig, handler: http.HandlerFunc(a.serveSecure)}
		g.Go(func() error { return a.listenAndServe(ctx, config) })
	}

	for _, addr := range a.ListenProxy {
		config := listenerConfig{addr: addr, isProxyV2: true, handler: handlers.ProxyHeaders(http.HandlerFunc(a.serveProxied))}
		g.Go(func() error { return a.listenAndServe(ctx, config) })
	}

	if a.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		config := listenerConfig{addr: a.MetricsAddress, handler: mux}
		g.Go(func() error { return a.listenAndServe(ctx, config) })
	}

	return g.Wait()
}

func runApp(config appConfig) {
	a, err := newApp(config)
	if err != nil {
		fatal(err, "could not configure the edge")
	}

	if err := a.Run(); err != nil {
		capturingFatal(err, "edge daemon failed")
	}
}
