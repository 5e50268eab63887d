package healthcheck

import (
	"net/http"
)

// NewMiddleware answers deployment probes on statusPath before any routing
// rule runs. An empty statusPath disables the endpoint.
func NewMiddleware(handler http.Handler, statusPath string) http.Handler {
	if statusPath == "" {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == statusPath {
			w.Header().Set("Cache-Control", "no-store")
			w.Write([]byte("success\n"))

			return
		}

		handler.ServeHTTP(w, r)
	})
}
