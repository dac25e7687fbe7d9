package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/panoplay/panoplay/cache"
	"github.com/panoplay/panoplay/circuitbreaker"
	"github.com/panoplay/panoplay/logging"
	"github.com/panoplay/panoplay/metrics"
)

// NetworkError wraps an upstream fetch failure with its originating cause.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fetcher handles fetching manifest content with cache fallback
type Fetcher struct {
	client   *http.Client
	storage  cache.Storage
	cacheTTL time.Duration
	breaker  circuitbreaker.CircuitBreaker
	logger   *logging.Logger
}

// New creates a new Fetcher with the specified timeout and cache configuration.
// breaker may be nil to fetch unguarded.
func New(timeout time.Duration, storage cache.Storage, cacheTTL time.Duration, breaker circuitbreaker.CircuitBreaker, logger *logging.Logger) Interface {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		storage:  storage,
		cacheTTL: cacheTTL,
		breaker:  breaker,
		logger:   logger,
	}
}

// Fetch retrieves the resource bytes directly from the network
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	content, err := f.fetchFromURL(ctx, url)
	if err != nil {
		metrics.ManifestFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ManifestFetches.WithLabelValues("ok").Inc()
	f.logger.LogPlaybackEvent(logging.EventManifestFetch, map[string]interface{}{
		"url":   url,
		"bytes": len(content),
	})
	return content, nil
}

// FetchWithCache fetches content with a cache-first strategy: a fresh cached
// copy is served immediately, an expired one triggers a refresh, and a failed
// refresh falls back to the stale copy when one exists.
func (f *Fetcher) FetchWithCache(ctx context.Context, url string) ([]byte, bool, bool, error) {
	cacheKey := cache.DeriveKeyFromURL(url)

	entry, cacheErr := f.storage.Get(cacheKey)
	if cacheErr == nil {
		expired, expErr := f.storage.IsExpired(cacheKey, f.cacheTTL)
		if expErr != nil {
			f.logger.Warn("Cache expiration check failed", map[string]interface{}{
				"url":   url,
				"error": expErr.Error(),
			})
			// Treat as expired and continue to fetch.
		} else if !expired {
			f.logger.Debug("Serving fresh cache", map[string]interface{}{
				"url": url,
				"age": time.Since(entry.Timestamp).String(),
			})
			metrics.ManifestFetches.WithLabelValues("cache").Inc()
			return entry.Content, true, false, nil
		}
	}

	content, fetchErr := f.Fetch(ctx, url)
	if fetchErr == nil {
		if setErr := f.storage.Set(cacheKey, content); setErr != nil {
			f.logger.Warn("Failed to update cache", map[string]interface{}{
				"url":   url,
				"error": setErr.Error(),
			})
		}
		return content, false, false, nil
	}

	if cacheErr != nil {
		return nil, false, false, fetchErr
	}

	f.logger.Warn("Serving stale cache after failed refresh", map[string]interface{}{
		"url":       url,
		"cached_at": entry.Timestamp.Format(time.RFC3339),
		"error":     fetchErr.Error(),
	})
	metrics.ManifestFetches.WithLabelValues("stale").Inc()
	return entry.Content, true, true, nil
}

// fetchFromURL performs the actual HTTP fetch, guarded by the circuit
// breaker when one is configured.
func (f *Fetcher) fetchFromURL(ctx context.Context, url string) ([]byte, error) {
	var content []byte

	do := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				f.logger.Warn("Failed to close response body", map[string]interface{}{
					"url":   url,
					"error": closeErr.Error(),
				})
			}
		}()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP request returned status %d: %s", resp.StatusCode, resp.Status)
		}

		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Execute(do)
	} else {
		err = do()
	}
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return content, nil
}
