package backend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"gitlab.com/gitlab-org/labkit/errortracking"

	"github.com/pandaproject/edge/internal/httperrors"
	"github.com/pandaproject/edge/internal/logging"
	"github.com/pandaproject/edge/internal/request"
	"github.com/pandaproject/edge/metrics"
)

// Proxy forwards application traffic to the backend reachable over a local
// unix domain socket. The backend speaks plain HTTP on that socket; the
// forwarding headers below take the place of the usual wsgi parameter set.
type Proxy struct {
	reverseProxy *httputil.ReverseProxy
	maxBodySize  int64
}

// NewProxy builds a Proxy for the socket at socketPath. maxBodySize caps the
// accepted request body in bytes; zero disables the cap. responseTimeout
// bounds how long the backend may take to produce response headers.
func NewProxy(socketPath string, maxBodySize int64, responseTimeout time.Duration) *Proxy {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
	}

	reverseProxy := &httputil.ReverseProxy{
		Director:     director,
		Transport:    transport,
		ErrorHandler: errorHandler,
	}

	return &Proxy{
		reverseProxy: reverseProxy,
		maxBodySize:  maxBodySize,
	}
}

// director rewrites the outbound request. The URL host is a placeholder, the
// transport dials the socket regardless. req.Host is left alone so the
// application sees the original Host header.
func director(req *http.Request) {
	scheme := request.SchemeHTTP
	if request.IsHTTPS(req) {
		scheme = request.SchemeHTTPS
	}

	req.Header.Set("X-Forwarded-Proto", scheme)
	req.Header.Set("X-Real-IP", request.GetRemoteAddrWithoutPort(req))

	req.URL.Scheme = request.SchemeHTTP
	req.URL.Host = "backend"
}

func errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away mid-request, nothing to answer
		logging.LogRequest(r).WithError(err).Debug("backend request canceled")
		return
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		metrics.BodyLimitRejections.Inc()
		logging.LogRequest(r).WithError(err).Info("request body exceeds the configured limit")
		httperrors.Serve413(w)
		return
	}

	metrics.BackendProxyErrors.Inc()
	logging.LogRequest(r).WithError(err).Error("could not reach the application socket")
	errortracking.Capture(err, errortracking.WithRequest(r), errortracking.WithStackTrace())
	httperrors.Serve502(w)
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.maxBodySize > 0 {
		if r.ContentLength > p.maxBodySize {
			metrics.BodyLimitRejections.Inc()
			httperrors.Serve413(w)
			return
		}

		// catches chunked uploads and lying Content-Length headers while
		// the body streams to the backend
		r.Body = http.MaxBytesReader(w, r.Body, p.maxBodySize)
	}

	p.reverseProxy.ServeHTTP(w, r)
}
