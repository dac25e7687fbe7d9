// Package handlers exposes the manifest-rewriting proxy over HTTP, for host
// engines that consume a playlist URL rather than playlist bytes.
package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/panoplay/panoplay/interceptor"
	"github.com/panoplay/panoplay/logging"
)

// Dependencies holds all the dependencies needed by the handlers
type Dependencies struct {
	Interceptor *interceptor.Interceptor
	Logger      *logging.Logger
}

// SetupRoutes configures all HTTP routes and handlers
func SetupRoutes(deps Dependencies) http.Handler {
	handler := http.NewServeMux()

	handler.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.Logger.Warn("Error writing health response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})

	// Prometheus metrics endpoint
	handler.Handle("/metrics", promhttp.Handler())

	handler.HandleFunc("/manifest", CreateManifestHandler(deps))

	return handler
}
