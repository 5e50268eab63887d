package redirect

import (
	"net"
	"net/http"
	"strconv"

	"github.com/pandaproject/edge/internal/request"
)

// NewHandler returns the handler mounted on the plaintext listeners. Every
// request is answered with a permanent redirect to the same host and path on
// the encrypted scheme; the query string survives the round trip untouched.
// httpsPort is re-attached to the Location host unless it is the default 443.
func NewHandler(httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := *r.URL
		u.Scheme = request.SchemeHTTPS
		u.Host = redirectHost(r.Host, httpsPort)
		u.User = nil

		http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
	})
}

func redirectHost(host string, httpsPort int) string {
	if splitHost, _, err := net.SplitHostPort(host); err == nil {
		host = splitHost
	}

	if httpsPort != 0 && httpsPort != 443 {
		host = net.JoinHostPort(host, strconv.Itoa(httpsPort))
	}

	return host
}
