// Package player coordinates playback state: transport and scrub state
// machines, variant hot-swapping, observer lifecycle, the control-panel
// auto-hide timer and bitrate telemetry. It consumes the ladder produced by
// the manifest package and drives variant pinning through the interceptor.
package player

import (
	"context"
	"time"

	"github.com/panoplay/panoplay/interceptor"
)

// MediaItem describes a playable source. Display metadata, projection and
// frame packing come from UI collaborators and are opaque to the core.
type MediaItem struct {
	URL          string
	Title        string
	Projection   string
	FramePacking string
}

// Engine abstracts the host media engine. Load binds the interceptor to the
// new asset; the engine routes loads of marker-scheme URLs through it and
// fetches everything else itself.
type Engine interface {
	Load(ctx context.Context, sourceURL string, ic *interceptor.Interceptor) (Session, error)
}

// Session is one loaded playback asset.
type Session interface {
	Play()
	Pause()
	// SeekTo seeks to t seconds and invokes completion when the seek
	// lands. completion may be nil.
	SeekTo(t float64, completion func(finished bool))
	SetVolume(v float64)
	Duration() float64

	// ObserveTime delivers the playback position at the given interval
	// until the subscription is cancelled.
	ObserveTime(interval time.Duration, fn func(t float64)) Subscription
	// ObserveEvents delivers session lifecycle events until cancelled.
	ObserveEvents(fn func(Event)) Subscription

	// Bitrate reports the engine's bitrate accounting for the session.
	Bitrate() BitrateStats

	Close() error
}

// Subscription is an explicit observer handle, torn down deterministically
// before any source swap rather than left to garbage collection.
type Subscription interface {
	Cancel()
}

// EventKind enumerates session lifecycle events.
type EventKind int

// Session lifecycle events delivered through ObserveEvents
const (
	// EventReady means the asset loaded and duration is known
	EventReady EventKind = iota
	// EventBuffering means playback stalled waiting for data
	EventBuffering
	// EventResumed means playback recovered from a buffering stall
	EventResumed
	// EventEnded means the position reached the duration
	EventEnded
	// EventFailed means the session hit an unrecoverable error
	EventFailed
)

// Event is one session lifecycle notification. Err is set for EventFailed.
type Event struct {
	Kind EventKind
	Err  error
}

// BitrateStats is whatever bitrate accounting the engine exposes, in bits
// per second. Average is preferred over the instantaneous peak when present.
type BitrateStats struct {
	Average float64
	Peak    float64
}

// Effective returns the preferred bitrate sample: average when available,
// else peak.
func (b BitrateStats) Effective() float64 {
	if b.Average > 0 {
		return b.Average
	}
	return b.Peak
}
