package main

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func testAppConfig(t *testing.T, backendHandler http.Handler) appConfig {
	t.Helper()

	mediaRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "img.png"), []byte("png-bytes"), 0o644))

	socketPath := filepath.Join(t.TempDir(), "app.sock")
	l, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	server := &http.Server{Handler: backendHandler}
	go server.Serve(l)
	t.Cleanup(func() { server.Close() })

	return appConfig{
		MediaPrefix:    "/site_media/",
		MediaRoot:      mediaRoot,
		MediaCacheTTL:  time.Hour,
		BackendSocket:  socketPath,
		BackendTimeout: 10 * time.Second,
		MaxBodySize:    1 << 20,
		RedirectHTTP:   true,
		HTTPSPort:      443,
		// json format routes access logging through the standard logger,
		// which the tests hook into
		LogFormat: "json",
	}
}

func TestInsecureListenerRedirects(t *testing.T) {
	app, err := newApp(testAppConfig(t, http.NotFoundHandler()))
	require.NoError(t, err)

	tests := map[string]struct {
		target           string
		expectedLocation string
	}{
		"plain": {
			target:           "/x",
			expectedLocation: "https://panda.example.com/x",
		},
		"with_query": {
			target:           "/x?a=1&b=2",
			expectedLocation: "https://panda.example.com/x?a=1&b=2",
		},
		"media_not_served_over_plaintext": {
			target:           "/site_media/img.png",
			expectedLocation: "https://panda.example.com/site_media/img.png",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			r.Host = "panda.example.com"

			app.serveInsecure(w, r)

			res := w.Result()
			res.Body.Close()

			require.Equal(t, http.StatusMovedPermanently, res.StatusCode)
			require.Equal(t, tt.expectedLocation, res.Header.Get("Location"))
		})
	}
}

func TestInsecureListenerServesRulesWhenRedirectDisabled(t *testing.T) {
	config := testAppConfig(t, http.NotFoundHandler())
	config.RedirectHTTP = false

	app, err := newApp(config)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.serveInsecure(w, httptest.NewRequest(http.MethodGet, "/site_media/img.png", nil))

	res := w.Result()
	res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "png-bytes", w.Body.String())
}

func TestSecureListenerServesMedia(t *testing.T) {
	backendHit := false
	app, err := newApp(testAppConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendHit = true
	})))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.serveSecure(w, httptest.NewRequest(http.MethodGet, "/site_media/img.png", nil))

	res := w.Result()
	res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "png-bytes", w.Body.String())
	require.Equal(t, "public, max-age=3600", res.Header.Get("Cache-Control"))
	require.False(t, backendHit, "media requests must not reach the backend")
}

func TestSecureListenerForwardsToBackend(t *testing.T) {
	var seenURI string
	app, err := newApp(testAppConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenURI = r.RequestURI
		fmt.Fprint(w, "from the application")
	})))
	require.NoError(t, err)

	tests := map[string]string{
		"app_page":          "/app/page",
		"root":              "/",
		"bare_media_prefix": "/site_media",
		"api":               "/api/1.0/dataset/?format=json",
	}

	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			app.serveSecure(w, httptest.NewRequest(http.MethodGet, target, nil))

			res := w.Result()
			res.Body.Close()

			require.Equal(t, http.StatusOK, res.StatusCode)
			require.Equal(t, "from the application", w.Body.String())
			require.Equal(t, target, seenURI)
		})
	}
}

func TestSecureListenerRejectsOversizedBody(t *testing.T) {
	backendHit := false
	config := testAppConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendHit = true
	}))
	config.MaxBodySize = 8

	app, err := newApp(config)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/1.0/dataset/", strings.NewReader("way more than eight bytes"))
	app.serveSecure(w, r)

	res := w.Result()
	res.Body.Close()

	require.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	require.False(t, backendHit)
}

func TestMediaRequestsAreNotAccessLogged(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	level := logrus.GetLevel()
	logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetLevel(level)

	app, err := newApp(testAppConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.serveSecure(w, httptest.NewRequest(http.MethodGet, "/site_media/img.png", nil))
	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.Empty(t, entriesForPath(hook, "/site_media/img.png"), "media request must not be access logged")

	w = httptest.NewRecorder()
	app.serveSecure(w, httptest.NewRequest(http.MethodGet, "/app/page", nil))
	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.NotEmpty(t, entriesForPath(hook, "/app/page"), "application request must be access logged")
}

func entriesForPath(hook *logrustest.Hook, path string) []*logrus.Entry {
	var matched []*logrus.Entry

	for _, entry := range hook.AllEntries() {
		if uri, ok := entry.Data["uri"].(string); ok && strings.Contains(uri, path) {
			matched = append(matched, entry)
		}
	}

	return matched
}

func TestStatusPath(t *testing.T) {
	config := testAppConfig(t, http.NotFoundHandler())
	config.StatusPath = "/-/status"

	app, err := newApp(config)
	require.NoError(t, err)

	for _, serve := range []func(http.ResponseWriter, *http.Request){app.serveSecure, app.serveInsecure} {
		w := httptest.NewRecorder()
		serve(w, httptest.NewRequest(http.MethodGet, "/-/status", nil))

		res := w.Result()
		res.Body.Close()

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "success\n", w.Body.String())
	}
}

func TestCustomHeaders(t *testing.T) {
	config := testAppConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	config.CustomHeaders = http.Header{"X-Served-By": {"panda-edge"}}

	app, err := newApp(config)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.serveSecure(w, httptest.NewRequest(http.MethodGet, "/app/page", nil))

	require.Equal(t, "panda-edge", w.Header().Get("X-Served-By"))
}
