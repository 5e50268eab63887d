package netutil

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	xnetutil "golang.org/x/net/netutil"
)

// LimitListener caps the number of simultaneous connections accepted from l
// and reports the accept pressure through the provided gauges. The limit is
// per listener; n <= 0 returns l unchanged.
func LimitListener(l net.Listener, n int, maxConns, concurrentConns prometheus.Gauge) net.Listener {
	if n <= 0 {
		return l
	}

	maxConns.Add(float64(n))

	return xnetutil.LimitListener(&countingListener{
		Listener:   l,
		concurrent: concurrentConns,
	}, n)
}

type countingListener struct {
	net.Listener
	concurrent prometheus.Gauge
}

func (l *countingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	l.concurrent.Inc()

	return &countedConn{Conn: conn, concurrent: l.concurrent}, nil
}

type countedConn struct {
	net.Conn
	closeOnce  sync.Once
	concurrent prometheus.Gauge
}

func (c *countedConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(c.concurrent.Dec)
	return err
}
