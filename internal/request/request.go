package request

import (
	"net"
	"net/http"
)

const (
	// SchemeHTTP name for the HTTP scheme
	SchemeHTTP = "http"

	// SchemeHTTPS name for the HTTPS scheme
	SchemeHTTPS = "https"
)

// IsHTTPS checks whether the request was served over an encrypted connection.
// The scheme is stamped on the request URL by the listener that accepted the
// connection, so it stays correct behind a PROXY-protocol load balancer.
func IsHTTPS(r *http.Request) bool {
	return r.URL.Scheme == SchemeHTTPS
}

// GetHostWithoutPort returns a host without the port. The host(:port) comes
// from a Host: header if it is provided, otherwise it is a server name.
func GetHostWithoutPort(r *http.Request) string {
	host := r.Host

	if splitHost, _, err := net.SplitHostPort(host); err == nil {
		host = splitHost
	}

	return host
}

// GetRemoteAddrWithoutPort strips the port from the peer address.
func GetRemoteAddrWithoutPort(r *http.Request) string {
	if remoteAddr, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return remoteAddr
	}

	return r.RemoteAddr
}
