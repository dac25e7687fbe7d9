package interceptor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/grafov/m3u8"

	"github.com/panoplay/panoplay/fetcher"
	"github.com/panoplay/panoplay/logging"
	"github.com/panoplay/panoplay/manifest"
	"github.com/panoplay/panoplay/metrics"
	"github.com/panoplay/panoplay/rewriter"
)

// ErrNotHandled is returned for loads whose scheme carries no marker; the
// caller should let the engine fetch those normally. This covers segment and
// sub-playlist fetches, which pass through unmodified.
var ErrNotHandled = errors.New("interceptor: request not handled")

// FallbackError reports that the selected variant could not be filtered and
// the unfiltered (absolutized) manifest was served instead, so playback
// continues on the engine's own adaptive ladder. It wraps the filter error.
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("served unfiltered manifest after filter failure: %v", e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// Interceptor answers marked manifest loads with rewritten playlist text.
// One instance is reused across variant switches: the engine binds it at
// asset-creation time, so selection changes mutate fields instead of
// recreating the interceptor.
//
// The selection fields are written only by the playback coordinator and read
// only inside an interception, so concurrent in-flight interceptions need no
// coordination beyond the field lock.
type Interceptor struct {
	schemes SchemeMap
	fetch   fetcher.Interface
	logger  *logging.Logger

	mu    sync.RWMutex
	rung  *manifest.Rung
	audio *manifest.AudioOption
}

// New creates an interceptor fetching through fetch and answering loads
// marked with the given schemes.
func New(schemes SchemeMap, fetch fetcher.Interface, logger *logging.Logger) *Interceptor {
	return &Interceptor{
		schemes: schemes,
		fetch:   fetch,
		logger:  logger,
	}
}

// Schemes returns the configured scheme markers.
func (ic *Interceptor) Schemes() SchemeMap {
	return ic.schemes
}

// SetSelection replaces the pinned rendition and audio track. Nil means
// adaptive/default. The coordinator must call this before swapping the
// playback source so no interception still serves the previous selection.
func (ic *Interceptor) SetSelection(rung *manifest.Rung, audio *manifest.AudioOption) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.rung = rung
	ic.audio = audio
}

// Selection returns the currently pinned rendition and audio track.
func (ic *Interceptor) Selection() (*manifest.Rung, *manifest.AudioOption) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.rung, ic.audio
}

// Handles reports whether Intercept would answer a load of rawURL.
func (ic *Interceptor) Handles(rawURL string) bool {
	return ic.schemes.Marked(rawURL)
}

// Intercept answers one manifest load: it recovers the original URL from the
// marker scheme, fetches the manifest, and rewrites it against the current
// selection with all URIs absolutized (the engine would otherwise resolve
// relative URIs against the marker-scheme URL).
//
// When the selection matches nothing in the manifest the absolutized but
// unfiltered text is served and a *FallbackError is returned alongside it;
// the caller decides whether to surface it. Any other failure returns nil
// bytes and the originating error.
func (ic *Interceptor) Intercept(ctx context.Context, rawURL string) ([]byte, error) {
	if !ic.Handles(rawURL) {
		return nil, ErrNotHandled
	}
	metrics.Interceptions.Inc()

	original := ic.schemes.Unmark(rawURL)

	content, fromCache, stale, err := ic.fetch.FetchWithCache(ctx, original)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(original)
	if err != nil {
		return nil, fmt.Errorf("interceptor: parse base URL: %w", err)
	}

	// Media playlists carry no variants to filter; serve them as fetched.
	if isMediaPlaylist(content) {
		metrics.Rewrites.WithLabelValues("passthrough").Inc()
		return content, nil
	}

	rung, audio := ic.Selection()

	ic.logger.LogPlaybackEvent(logging.EventInterception, map[string]interface{}{
		"url":        original,
		"pinned":     rung != nil || audio != nil,
		"from_cache": fromCache,
		"stale":      stale,
	})

	out, filterErr := rewriter.Filter(content, base, rewriter.Options{
		Rung:       rung,
		Audio:      audio,
		Absolutize: true,
	})
	if filterErr == nil {
		if rung != nil || audio != nil {
			metrics.Rewrites.WithLabelValues("filtered").Inc()
		} else {
			metrics.Rewrites.WithLabelValues("passthrough").Inc()
		}
		return out, nil
	}

	if !errors.Is(filterErr, rewriter.ErrRungFiltered) && !errors.Is(filterErr, rewriter.ErrAudioFiltered) {
		metrics.Rewrites.WithLabelValues("error").Inc()
		return nil, filterErr
	}

	// Stale selection: the manifest no longer advertises the pinned variant.
	// Serving nothing would kill playback, so serve the full ladder and let
	// the caller surface the error.
	out, err = rewriter.Filter(content, base, rewriter.Options{Absolutize: true})
	if err != nil {
		metrics.Rewrites.WithLabelValues("error").Inc()
		return nil, filterErr
	}

	ic.logger.LogPlaybackEvent(logging.EventRewriteFallback, map[string]interface{}{
		"url":   original,
		"error": filterErr.Error(),
	})
	metrics.Rewrites.WithLabelValues("fallback").Inc()
	return out, &FallbackError{Err: filterErr}
}

// isMediaPlaylist reports whether the payload decodes as an HLS media
// playlist rather than a master playlist. Undecodable payloads are treated
// as master so that filtering still gets its chance.
func isMediaPlaylist(content []byte) bool {
	_, listType, err := m3u8.DecodeFrom(bytes.NewReader(content), true)
	return err == nil && listType == m3u8.MEDIA
}
