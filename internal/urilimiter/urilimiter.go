package urilimiter

import (
	"net/http"

	"github.com/pandaproject/edge/internal/httperrors"
)

// NewMiddleware rejects requests whose URI exceeds limit bytes with 414.
// A zero limit disables the check.
func NewMiddleware(handler http.Handler, limit int) http.Handler {
	if limit == 0 {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.RequestURI) > limit {
			httperrors.Serve414(w)

			return
		}

		handler.ServeHTTP(w, r)
	})
}
