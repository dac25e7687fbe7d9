// Package fetcher retrieves raw manifest and subtitle bytes over HTTP with a
// cache-first strategy and stale fallback. It never retries on its own;
// failures surface as typed errors to the caller.
package fetcher

import "context"

// Interface defines the contract for manifest fetching operations
type Interface interface {
	// Fetch retrieves the resource bytes directly from the network.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// FetchWithCache retrieves the resource with a cache-first strategy.
	// Returns the content, whether it came from cache, and whether the
	// cached copy was stale (served only because the refresh failed).
	FetchWithCache(ctx context.Context, url string) ([]byte, bool, bool, error)
}
