package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/namsral/flag"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/errortracking"

	"github.com/pandaproject/edge/internal/customheaders"
	"github.com/pandaproject/edge/internal/logging"
	"github.com/pandaproject/edge/internal/tlsconfig"
	"github.com/pandaproject/edge/metrics"
)

// VERSION stores the information about the semantic version of application
var VERSION = "dev"

// REVISION stores the information about the git revision of application
var REVISION = "HEAD"

func init() {
	flag.Var(&listenHTTP, "listen-http", "The address(es) to listen on for plaintext requests")
	flag.Var(&listenHTTPS, "listen-https", "The address(es) to listen on for TLS requests")
	flag.Var(&listenProxy, "listen-proxy", "The address(es) to listen on behind a PROXY-protocol load balancer")
	flag.Var(&header, "header", "The additional http header(s) that should be sent with every response")
}

var (
	rootCert       = flag.String("root-cert", "", "The path to the certificate file used by the TLS listeners")
	rootKey        = flag.String("root-key", "", "The path to the private key file used by the TLS listeners")
	redirectHTTP   = flag.Bool("redirect-http", true, "Permanently redirect plaintext requests to HTTPS")
	httpsPort      = flag.Int("https-port", 443, "The port clients reach the TLS listeners on, used when building redirects")
	useHTTP2       = flag.Bool("use-http2", true, "Enable HTTP2 support")
	mediaPrefix    = flag.String("media-prefix", "/site_media/", "The URL prefix under which uploaded media is served")
	mediaRoot      = flag.String("media-root", "/var/lib/panda/media", "The directory where uploaded media is stored")
	mediaCacheTTL  = flag.Duration("media-cache-ttl", time.Hour, "Client-side cache lifetime for media responses")
	backendSocket  = flag.String("backend-socket", "/tmp/uwsgi.sock", "The unix socket the application server listens on")
	backendTimeout = flag.Duration("backend-timeout", time.Minute, "Time to wait for response headers from the application")
	maxBodySize    = flag.Int64("max-body-size", 1<<30, "Maximum accepted request body size in bytes (0 to disable)")
	maxConns       = flag.Int("max-conns", 0, "Limit on concurrent connections per listener (0 to disable)")
	maxURILength   = flag.Int("max-uri-length", 8192, "Maximum accepted request URI length in bytes (0 to disable)")
	rateLimit      = flag.Float64("rate-limit", 0, "Requests per second allowed per source IP (0 to disable)")
	rateBurst      = flag.Int("rate-burst", 100, "Burst of requests allowed per source IP when rate limiting")
	statusPath     = flag.String("status-path", "", "The url path for a status page, e.g., /-/status (empty to disable)")
	metricsAddress = flag.String("metrics-address", "", "The address to listen on for metrics requests")
	sentryDSN      = flag.String("sentry-dsn", "", "The address for sending sentry crash reporting to")
	sentryEnv      = flag.String("sentry-environment", "", "The environment for sentry crash reporting")
	logFormat      = flag.String("log-format", "text", "The log output format: 'text' or 'json'")
	logVerbose     = flag.Bool("log-verbose", false, "Verbose logging")

	insecureCiphers = flag.Bool("insecure-ciphers", false, "Use default list of cipher suites, may contain insecure ones like 3DES and RC4")
	tlsMinVersion   = flag.String("tls-min-version", "tls1.2", tlsconfig.FlagUsage("min"))
	tlsMaxVersion   = flag.String("tls-max-version", "", tlsconfig.FlagUsage("max"))

	disableCrossOriginRequests = flag.Bool("disable-cross-origin-requests", false, "Disable cross-origin requests for media")

	// See init()
	listenHTTP  MultiStringFlag
	listenHTTPS MultiStringFlag
	listenProxy MultiStringFlag

	header MultiStringFlag
)

func configFromFlags() (appConfig, error) {
	var config appConfig
	var result *multierror.Error

	config.ListenHTTP = listenHTTP.Split()
	config.ListenHTTPS = listenHTTPS.Split()
	config.ListenProxy = listenProxy.Split()

	// the stock deployment: plaintext redirector on 80, TLS on 443 when
	// certificate material was supplied
	if len(config.ListenHTTP)+len(config.ListenHTTPS)+len(config.ListenProxy) == 0 {
		config.ListenHTTP = []string{":80"}
		if *rootCert != "" {
			config.ListenHTTPS = []string{":443"}
		}
	}

	if len(config.ListenHTTPS) > 0 {
		if *rootCert == "" || *rootKey == "" {
			result = multierror.Append(result, errNoCertificate)
		}

		for _, file := range []struct {
			contents *[]byte
			path     string
		}{
			{&config.RootCertificate, *rootCert},
			{&config.RootKey, *rootKey},
		} {
			if file.path == "" {
				continue
			}

			contents, err := os.ReadFile(file.path)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			*file.contents = contents
		}
	}

	config.InsecureCiphers = *insecureCiphers
	config.TLSMinVersion = tlsconfig.AllTLSVersions[*tlsMinVersion]
	config.TLSMaxVersion = tlsconfig.AllTLSVersions[*tlsMaxVersion]

	config.MediaPrefix = *mediaPrefix
	config.MediaRoot = *mediaRoot
	config.MediaCacheTTL = *mediaCacheTTL

	config.BackendSocket = *backendSocket
	config.BackendTimeout = *backendTimeout

	if *maxBodySize < 0 {
		result = multierror.Append(result, errNegativeBodySize)
	}
	config.MaxBodySize = *maxBodySize

	config.RedirectHTTP = *redirectHTTP
	config.HTTPSPort = *httpsPort
	config.HTTP2 = *useHTTP2
	config.MaxConns = *maxConns
	config.MaxURILength = *maxURILength

	if *rateLimit > 0 && *rateBurst < 1 {
		result = multierror.Append(result, errInvalidRateBurst)
	}
	config.RateLimitPerSecond = *rateLimit
	config.RateLimitBurst = *rateBurst

	customHeaders, err := customheaders.ParseHeaderString(header.Split())
	if err != nil {
		result = multierror.Append(result, err)
	}
	config.CustomHeaders = customHeaders

	config.StatusPath = *statusPath
	config.DisableCrossOriginRequests = *disableCrossOriginRequests

	config.LogFormat = *logFormat
	config.LogVerbose = *logVerbose

	config.MetricsAddress = *metricsAddress
	config.SentryDSN = *sentryDSN
	config.SentryEnvironment = *sentryEnv

	return config, result.ErrorOrNil()
}

func initErrorReporting(sentryDSN, sentryEnvironment string) {
	errortracking.Initialize(
		errortracking.WithSentryDSN(sentryDSN),
		errortracking.WithVersion(fmt.Sprintf("%s-%s", VERSION, REVISION)),
		errortracking.WithLoggerName("panda-edge"),
		errortracking.WithSentryEnvironment(sentryEnvironment))
}

func loadConfig() appConfig {
	config, err := configFromFlags()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if config.SentryDSN != "" {
		initErrorReporting(config.SentryDSN, config.SentryEnvironment)
	}

	log.WithFields(log.Fields{
		"listen-http":     listenHTTP.String(),
		"listen-https":    listenHTTPS.String(),
		"listen-proxy":    listenProxy.String(),
		"redirect-http":   config.RedirectHTTP,
		"https-port":      config.HTTPSPort,
		"media-prefix":    config.MediaPrefix,
		"media-root":      config.MediaRoot,
		"media-cache-ttl": config.MediaCacheTTL,
		"backend-socket":  config.BackendSocket,
		"max-body-size":   config.MaxBodySize,
		"max-conns":       config.MaxConns,
		"metrics-address": config.MetricsAddress,
		"log-format":      config.LogFormat,
		"use-http2":       config.HTTP2,
		"tls-min-version": *tlsMinVersion,
		"tls-max-version": *tlsMaxVersion,
	}).Debug("starting with configuration")

	return config
}

func appMain() {
	var showVersion = flag.Bool("version", false, "Show version")

	// read from -config=/path/to/panda-edge-config
	flag.String(flag.DefaultConfigFlagname, "", "path to config file")
	flag.Parse()

	printVersion(*showVersion, VERSION)

	if err := tlsconfig.ValidateTLSVersions(*tlsMinVersion, *tlsMaxVersion); err != nil {
		fatal(err, "invalid TLS version")
	}

	if err := logging.ConfigureLogging(*logFormat, *logVerbose); err != nil {
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	log.WithFields(log.Fields{
		"version":  VERSION,
		"revision": REVISION,
	}).Print("PANDA edge daemon")

	config := loadConfig()

	addExtraMIMETypes()

	runApp(config)
}

func printVersion(showVersion bool, version string) {
	if showVersion {
		fmt.Fprintf(os.Stdout, "%s\n", version)
		os.Exit(0)
	}
}

func main() {
	log.SetOutput(os.Stderr)

	metrics.MustRegister()

	appMain()
}
