// Package manifest models the rendition ladder advertised by an HLS master
// playlist and parses playlist text into it.
package manifest

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Rung represents one fixed resolution/bitrate rendition from a master
// playlist. Identity is the variant URL; all other fields are descriptive.
type Rung struct {
	Width          int
	Height         int
	AverageBitrate int
	PeakBitrate    int
	URL            string
}

// EffectiveBitrate returns the average bitrate when declared, falling back to
// the peak bitrate otherwise.
func (r Rung) EffectiveBitrate() int {
	if r.AverageBitrate > 0 {
		return r.AverageBitrate
	}
	return r.PeakBitrate
}

// Less orders rungs by height, then width, then average bitrate, then peak
// bitrate, ascending.
func (r Rung) Less(other Rung) bool {
	if r.Height != other.Height {
		return r.Height < other.Height
	}
	if r.Width != other.Width {
		return r.Width < other.Width
	}
	if r.AverageBitrate != other.AverageBitrate {
		return r.AverageBitrate < other.AverageBitrate
	}
	return r.PeakBitrate < other.PeakBitrate
}

// Equal reports whether two rungs address the same variant playlist.
func (r Rung) Equal(other Rung) bool {
	return r.URL == other.URL
}

// Label returns a short human-readable description, e.g. "1280x720 @ 2.0 Mbps".
func (r Rung) Label() string {
	mbps := float64(r.EffectiveBitrate()) / 1e6
	if r.Width == 0 && r.Height == 0 {
		return fmt.Sprintf("%.1f Mbps", mbps)
	}
	return fmt.Sprintf("%dx%d @ %.1f Mbps", r.Width, r.Height, mbps)
}

// AudioOption represents one alternate audio track declared by an
// #EXT-X-MEDIA tag. Identity is the track URL. Name and Language may be
// empty; DisplayName falls back through them.
type AudioOption struct {
	URL      string
	GroupID  string
	Name     string
	Language string
}

// DisplayName derives a user-facing name for the track: the display name of
// the declared language code when it parses as BCP 47, else the declared
// NAME, else the group ID.
func (a AudioOption) DisplayName() string {
	if a.Language != "" {
		if tag, err := language.Parse(a.Language); err == nil {
			if name := display.English.Languages().Name(tag); name != "" {
				return name
			}
		}
	}
	if a.Name != "" {
		return a.Name
	}
	return a.GroupID
}

// Less orders audio options by group ID, then by display name.
func (a AudioOption) Less(other AudioOption) bool {
	if a.GroupID != other.GroupID {
		return a.GroupID < other.GroupID
	}
	return a.DisplayName() < other.DisplayName()
}

// Equal reports whether two options address the same track playlist.
func (a AudioOption) Equal(other AudioOption) bool {
	return a.URL == other.URL
}

// Ladder is the ordered set of rungs produced by one parse. An empty ladder
// is valid: the source had no adaptive variants.
type Ladder []Rung

// AudioList is the ordered set of alternate audio options produced by one
// parse. An empty list is valid.
type AudioList []AudioOption
