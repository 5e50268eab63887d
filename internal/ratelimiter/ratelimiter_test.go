package ratelimiter

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowPerSourceIP(t *testing.T) {
	rl := New(1, 2)

	// burst of two for the first source
	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))

	// a different source has its own bucket
	require.True(t, rl.Allow("10.0.0.2"))
}

func TestNewMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	})

	tests := map[string]struct {
		perSecond        float64
		burst            int
		requests         int
		expectedStatuses []int
	}{
		"disabled": {
			perSecond:        0,
			requests:         3,
			expectedStatuses: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
		"burst_then_blocked": {
			perSecond:        0.01,
			burst:            2,
			requests:         3,
			expectedStatuses: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			middleware := NewMiddleware(inner, tt.perSecond, tt.burst)

			for i := 0; i < tt.requests; i++ {
				w := httptest.NewRecorder()
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.RemoteAddr = "10.1.1.1:1234"

				middleware.ServeHTTP(w, r)

				res := w.Result()
				res.Body.Close()

				require.Equal(t, tt.expectedStatuses[i], res.StatusCode, "request %d", i)
			}
		})
	}
}
