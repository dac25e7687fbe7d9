// Package metrics exposes Prometheus instrumentation for the player core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ManifestFetches counts upstream manifest fetches by result
	// (ok, error, cache, stale)
	ManifestFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoplay_manifest_fetches_total",
		Help: "Total number of manifest fetches by result",
	}, []string{"result"})

	// Interceptions counts manifest loads routed through the interceptor
	Interceptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panoplay_interceptions_total",
		Help: "Total number of intercepted manifest loads",
	})

	// Rewrites counts manifest rewrites by result (filtered, passthrough, fallback, error)
	Rewrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoplay_manifest_rewrites_total",
		Help: "Total number of manifest rewrites by result",
	}, []string{"result"})

	// VariantSwitches counts rendition and audio reselections
	VariantSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoplay_variant_switches_total",
		Help: "Total number of rendition/audio reselections",
	}, []string{"kind"})

	// PlaybackState tracks the current transport state
	// (0=stopped, 1=loading, 2=playing, 3=paused, 4=ended, 5=failed)
	PlaybackState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoplay_playback_state",
		Help: "Current playback transport state (0=stopped, 1=loading, 2=playing, 3=paused, 4=ended, 5=failed)",
	})

	// PlaybackBitrate tracks the most recently sampled playback bitrate
	PlaybackBitrate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoplay_playback_bitrate_bps",
		Help: "Most recently sampled playback bitrate in bits per second",
	})

	// SubtitleLookupScans observes how many cues a point-in-time lookup
	// visited beyond the cached cursor
	SubtitleLookupScans = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "panoplay_subtitle_lookup_scan_steps",
		Help:    "Cues visited per subtitle lookup beyond the cached cursor",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 64, 256},
	})
)
