package main

import (
	"net/http"
	"time"
)

type appConfig struct {
	ListenHTTP  []string
	ListenHTTPS []string
	ListenProxy []string

	RootCertificate []byte
	RootKey         []byte
	InsecureCiphers bool
	TLSMinVersion   uint16
	TLSMaxVersion   uint16

	MediaPrefix   string
	MediaRoot     string
	MediaCacheTTL time.Duration

	BackendSocket  string
	BackendTimeout time.Duration
	MaxBodySize    int64

	RedirectHTTP bool
	HTTPSPort    int

	HTTP2        bool
	MaxConns     int
	MaxURILength int

	RateLimitPerSecond float64
	RateLimitBurst     int

	CustomHeaders http.Header

	StatusPath                 string
	DisableCrossOriginRequests bool

	LogFormat  string
	LogVerbose bool

	MetricsAddress    string
	SentryDSN         string
	SentryEnvironment string
}
