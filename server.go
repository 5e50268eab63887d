package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
	"golang.org/x/net/http2"

	"github.com/pandaproject/edge/internal/netutil"
	"github.com/pandaproject/edge/internal/tlsconfig"
	"github.com/pandaproject/edge/metrics"
)

const shutdownTimeout = 30 * time.Second

type keepAliveListener struct {
	net.Listener
}

type keepAliveSetter interface {
	SetKeepAlive(bool) error
	SetKeepAlivePeriod(time.Duration) error
}

func (ln *keepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if kc, ok := conn.(keepAliveSetter); ok {
		kc.SetKeepAlive(true)
		kc.SetKeepAlivePeriod(3 * time.Minute)
	}

	return conn, nil
}

type listenerConfig struct {
	addr      string
	isProxyV2 bool
	tlsConfig *tls.Config
	handler   http.Handler
}

func (a *theApp) listenAndServe(ctx context.Context, config listenerConfig) error {
	server := &http.Server{
		Handler:           config.handler,
		TLSConfig:         config.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.HTTP2 {
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			return err
		}
	}

	l, err := net.Listen("tcp", config.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", config.addr, err)
	}

	var ln net.Listener = &keepAliveListener{l}

	ln = netutil.LimitListener(ln, a.MaxConns, metrics.LimitListenerMaxConns, metrics.LimitListenerConcurrentConns)

	if config.isProxyV2 {
		ln = &proxyproto.Listener{
			Listener: ln,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}

	if config.tlsConfig != nil {
		ln = tls.NewListener(ln, server.TLSConfig)
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func tlsconfigFromApp(config *appConfig) (*tls.Config, error) {
	return tlsconfig.Create(
		config.RootCertificate,
		config.RootKey,
		config.InsecureCiphers,
		config.TLSMinVersion,
		config.TLSMaxVersion,
	)
}
