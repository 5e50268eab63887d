package media

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pandaproject/edge/internal/httperrors"
	"github.com/pandaproject/edge/metrics"
)

// lookupTTL bounds how long a path resolution (including a miss) is reused
// before the filesystem is consulted again.
const lookupTTL = time.Minute

// negativeEntry marks a cached lookup that did not resolve to a file.
const negativeEntry = ""

// Handler serves the user-uploaded media tree. Requests whose path begins
// with the configured prefix map to files at the same relative path under
// the media root. Successful responses carry a client-side cache lifetime.
type Handler struct {
	prefix   string
	root     string
	cacheTTL time.Duration
	lookups  *gocache.Cache
}

// NewHandler builds a Handler rooted at rootDir. The prefix must begin and
// end with a slash. rootDir must exist at startup; a missing media directory
// is a configuration error, not something to discover request by request.
func NewHandler(prefix, rootDir string, cacheTTL time.Duration) (*Handler, error) {
	if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		return nil, fmt.Errorf("media prefix %q must begin and end with a slash", prefix)
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("media root %q: %w", rootDir, err)
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("media root %q: %w", rootDir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("media root %q is not a directory", rootDir)
	}

	return &Handler{
		prefix:   prefix,
		root:     root,
		cacheTTL: cacheTTL,
		lookups:  gocache.New(lookupTTL, 5*time.Minute),
	}, nil
}

// Matches reports whether the request path falls under the media prefix.
// The bare prefix without its trailing slash does not match and falls
// through to the application, same as a prefix location would.
func (h *Handler) Matches(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, h.prefix)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fullPath, err := h.resolvePath(r.URL.Path)
	if err != nil {
		httperrors.Serve404(w)
		return
	}

	file, err := os.Open(fullPath)
	if err != nil {
		// resolved a moment ago but gone now; retire the cached entry
		h.lookups.Delete(r.URL.Path)
		httperrors.Serve404(w)
		return
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil || fi.IsDir() {
		httperrors.Serve404(w)
		return
	}

	h.setCacheHeaders(w)
	http.ServeContent(w, r, filepath.Base(fullPath), fi.ModTime(), file)
}

// resolvePath maps a request path to a file under the media root, reusing
// recent resolutions. Lookup failures are cached too, so a hot missing URL
// does not hammer the filesystem.
func (h *Handler) resolvePath(urlPath string) (string, error) {
	if cached, found := h.lookups.Get(urlPath); found {
		metrics.MediaCacheHit.Inc()

		resolved := cached.(string)
		if resolved == negativeEntry {
			return "", os.ErrNotExist
		}
		return resolved, nil
	}

	metrics.MediaCacheMiss.Inc()

	fullPath, err := h.lookup(urlPath)
	if err != nil {
		h.lookups.SetDefault(urlPath, negativeEntry)
		return "", err
	}

	h.lookups.SetDefault(urlPath, fullPath)
	return fullPath, nil
}

func (h *Handler) lookup(urlPath string) (string, error) {
	rel := path.Clean("/" + strings.TrimPrefix(urlPath, h.prefix))

	fullPath := filepath.Join(h.root, filepath.FromSlash(rel))

	// Resolve symlinks and make sure the target is still inside the media
	// root, so crafted paths and stray links cannot escape it.
	fullPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return "", err
	}

	if fullPath != h.root && !strings.HasPrefix(fullPath, h.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%q resolves outside of %q", urlPath, h.root)
	}

	return fullPath, nil
}

func (h *Handler) setCacheHeaders(w http.ResponseWriter) {
	seconds := int(h.cacheTTL.Seconds())
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(seconds))
	w.Header().Set("Expires", time.Now().Add(h.cacheTTL).UTC().Format(http.TimeFormat))
}
