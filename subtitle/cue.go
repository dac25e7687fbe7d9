// Package subtitle maintains a time-sorted cue list with a cached cursor for
// point-in-time lookups cheap enough to run every rendered frame.
package subtitle

// Cue is a timed subtitle entry. A cue is active over [StartTime, EndTime);
// EndTime > StartTime is expected but not enforced.
type Cue struct {
	ID        int
	StartTime float64
	EndTime   float64
	Text      string
}

// IsActive reports whether the cue should be displayed at time t.
func (c Cue) IsActive(t float64) bool {
	return t >= c.StartTime && t < c.EndTime
}
