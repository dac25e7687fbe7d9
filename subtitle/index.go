package subtitle

import (
	"sort"

	"github.com/panoplay/panoplay/metrics"
)

// Controller indexes a cue list for point-in-time lookup. The list is sorted
// ascending by start time once at construction and never re-sorted; loading a
// new track replaces the whole controller.
//
// Lookups probe bidirectionally from a cached cursor: the fast path and the
// forward scan keep monotonic playback at amortized O(1), the backward scan
// bounds the cost of seeks. All methods must be called from the single
// presentation context; the controller does no locking of its own.
type Controller struct {
	cues         []Cue
	currentIndex int
}

// NewController builds a controller over the given cues.
func NewController(cues []Cue) *Controller {
	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})
	return &Controller{cues: sorted}
}

// Cues returns the sorted cue list.
func (c *Controller) Cues() []Cue {
	return c.cues
}

// CueAt returns the cue active at time t, if any.
func (c *Controller) CueAt(t float64) (Cue, bool) {
	if len(c.cues) == 0 {
		return Cue{}, false
	}

	steps := 0
	defer func() {
		metrics.SubtitleLookupScans.Observe(float64(steps))
	}()

	if cue := c.cues[c.currentIndex]; cue.IsActive(t) {
		return cue, true
	}

	// Forward from the cursor. Cues are sorted by start time, so once one
	// starts after t no later cue can be active.
	for i := c.currentIndex + 1; i < len(c.cues); i++ {
		steps++
		if c.cues[i].StartTime > t {
			break
		}
		if c.cues[i].IsActive(t) {
			c.currentIndex = i
			return c.cues[i], true
		}
	}

	// Backward from the cursor, for seeks behind the current position.
	for i := c.currentIndex - 1; i >= 0; i-- {
		steps++
		if c.cues[i].EndTime < t {
			break
		}
		if c.cues[i].IsActive(t) {
			c.currentIndex = i
			return c.cues[i], true
		}
	}

	return Cue{}, false
}

// Reset rewinds the cursor to the first cue. Used after a large seek or a
// subtitle-track reload.
func (c *Controller) Reset() {
	c.currentIndex = 0
}
