package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/panoplay/panoplay/fetcher"
	"github.com/panoplay/panoplay/interceptor"
	"github.com/panoplay/panoplay/logging"
	"github.com/panoplay/panoplay/manifest"
	"github.com/panoplay/panoplay/rewriter"
)

// CreateManifestHandler serves rewritten manifests. The src query parameter
// carries the upstream manifest URL, plain or already marker-schemed; the
// response is the filtered, absolutized playlist for the interceptor's
// current selection.
func CreateManifestHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			return
		}

		src := r.URL.Query().Get("src")
		if src == "" {
			logging.WriteJSONError(w, deps.Logger, "Missing src parameter", http.StatusBadRequest, map[string]interface{}{
				"path": r.URL.Path,
			})
			return
		}

		schemes := deps.Interceptor.Schemes()
		if !schemes.Marked(src) {
			if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
				logging.WriteJSONError(w, deps.Logger, "src must be an http(s) URL", http.StatusBadRequest, map[string]interface{}{
					"src": src,
				})
				return
			}
			src = schemes.Mark(src)
		}

		content, err := deps.Interceptor.Intercept(r.Context(), src)
		if err != nil && content == nil {
			status := http.StatusBadGateway
			var netErr *fetcher.NetworkError
			switch {
			case errors.As(err, &netErr):
				status = http.StatusBadGateway
			case errors.Is(err, rewriter.ErrRungFiltered), errors.Is(err, rewriter.ErrAudioFiltered):
				status = http.StatusUnprocessableEntity
			case errors.Is(err, manifest.ErrNotText):
				status = http.StatusUnprocessableEntity
			}
			logging.WriteJSONError(w, deps.Logger, "Failed to rewrite manifest", status, map[string]interface{}{
				"src":   src,
				"error": err.Error(),
			})
			return
		}

		// A fallback still serves the unfiltered manifest; flag it so
		// callers can tell their selection went stale.
		var fb *interceptor.FallbackError
		if errors.As(err, &fb) {
			w.Header().Set("X-Panoplay-Fallback", "1")
		}

		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(content); err != nil {
			deps.Logger.Warn("Failed to write manifest response", map[string]interface{}{
				"src":   src,
				"error": err.Error(),
			})
		}
	}
}
