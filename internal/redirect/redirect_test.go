package redirect

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	tests := map[string]struct {
		target           string
		host             string
		httpsPort        int
		expectedLocation string
	}{
		"plain_path": {
			target:           "/x",
			host:             "panda.example.com",
			expectedLocation: "https://panda.example.com/x",
		},
		"query_string_preserved": {
			target:           "/datasets/search?q=budget&limit=50",
			host:             "panda.example.com",
			expectedLocation: "https://panda.example.com/datasets/search?q=budget&limit=50",
		},
		"host_port_stripped": {
			target:           "/x",
			host:             "panda.example.com:80",
			expectedLocation: "https://panda.example.com/x",
		},
		"non_default_https_port": {
			target:           "/x",
			host:             "panda.example.com:8000",
			httpsPort:        8443,
			expectedLocation: "https://panda.example.com:8443/x",
		},
		"default_https_port_omitted": {
			target:           "/x",
			host:             "panda.example.com",
			httpsPort:        443,
			expectedLocation: "https://panda.example.com/x",
		},
		"media_path": {
			target:           "/site_media/img.png",
			host:             "panda.example.com",
			expectedLocation: "https://panda.example.com/site_media/img.png",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			handler := NewHandler(tt.httpsPort)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			r.Host = tt.host

			handler.ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()

			require.Equal(t, http.StatusMovedPermanently, res.StatusCode)
			require.Equal(t, tt.expectedLocation, res.Header.Get("Location"))
		})
	}
}
