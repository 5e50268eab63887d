package healthcheck

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "from inner handler")
	})

	tests := map[string]struct {
		statusPath   string
		path         string
		expectedBody string
	}{
		"status_request": {
			statusPath:   "/-/status",
			path:         "/-/status",
			expectedBody: "success\n",
		},
		"regular_request": {
			statusPath:   "/-/status",
			path:         "/app/page",
			expectedBody: "from inner handler",
		},
		"disabled": {
			statusPath:   "",
			path:         "/-/status",
			expectedBody: "from inner handler",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			middleware := NewMiddleware(inner, tt.statusPath)

			w := httptest.NewRecorder()
			middleware.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			res := w.Result()
			res.Body.Close()

			require.Equal(t, http.StatusOK, res.StatusCode)
			require.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}
