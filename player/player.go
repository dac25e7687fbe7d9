package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panoplay/panoplay/fetcher"
	"github.com/panoplay/panoplay/interceptor"
	"github.com/panoplay/panoplay/logging"
	"github.com/panoplay/panoplay/manifest"
	"github.com/panoplay/panoplay/metrics"
)

// State is the top-level transport state.
type State int

// Transport states. Failed absorbs load and mid-playback errors; Ended is
// left by seeking or by Play, which restarts from zero.
const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ScrubPhase is the scrub sub-state, independent of the transport state.
type ScrubPhase int

// Scrub phases. ScrubStarted suspends position updates from the periodic
// time observer; ScrubEnded seeks to the pending position and returns to
// ScrubNone once the seek lands.
const (
	ScrubNone ScrubPhase = iota
	ScrubStarted
	ScrubEnded
)

// DefaultAutoHideDelay is the quiet interval after which the control panel
// hides while playback progresses.
const DefaultAutoHideDelay = 10 * time.Second

// DefaultTimeObserveInterval is the period of the playback time observer.
const DefaultTimeObserveInterval = 500 * time.Millisecond

// Options tunes coordinator behavior. Zero values take the defaults above.
type Options struct {
	AutoHideDelay       time.Duration
	TimeObserveInterval time.Duration
}

// Snapshot is the UI-visible state published to the listener after every
// mutation.
type Snapshot struct {
	State           State
	Scrub           ScrubPhase
	Item            MediaItem
	Position        float64
	Duration        float64
	Bitrate         float64
	Buffering       bool
	ControlsVisible bool
	SelectedRung    int
	SelectedAudio   int
	Err             error
}

// Listener receives state snapshots. It is invoked outside the coordinator
// lock and may call back into the Player.
type Listener func(Snapshot)

// Player is the playback coordinator. Public methods are expected to be
// called from a single presentation context; the internal lock only
// serializes engine observer callbacks against them.
type Player struct {
	engine Engine
	fetch  fetcher.Interface
	ic     *interceptor.Interceptor
	logger *logging.Logger
	opts   Options

	mu        sync.Mutex
	listener  Listener
	item      MediaItem
	sourceURL string
	sessionID string
	session   Session
	subs      []Subscription

	state     State
	scrub     ScrubPhase
	scrubPos  float64
	err       error
	position  float64
	duration  float64
	bitrate   float64
	buffering bool
	volume    float64

	ladder        manifest.Ladder
	audio         manifest.AudioList
	selectedRung  int
	selectedAudio int

	controlsVisible bool
	hideTimer       *time.Timer
	hideGen         uint64
}

// New creates a playback coordinator. The interceptor instance is reused for
// the lifetime of the player; selection changes mutate it in place.
func New(engine Engine, fetch fetcher.Interface, ic *interceptor.Interceptor, logger *logging.Logger, opts Options) *Player {
	if opts.AutoHideDelay <= 0 {
		opts.AutoHideDelay = DefaultAutoHideDelay
	}
	if opts.TimeObserveInterval <= 0 {
		opts.TimeObserveInterval = DefaultTimeObserveInterval
	}
	return &Player{
		engine:          engine,
		fetch:           fetch,
		ic:              ic,
		logger:          logger,
		opts:            opts,
		state:           StateStopped,
		selectedRung:    -1,
		selectedAudio:   -1,
		controlsVisible: true,
		volume:          1,
	}
}

// SetListener registers the UI state callback.
func (p *Player) SetListener(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
}

// OpenSource tears down any previous session, resets transient state and
// loads the item. Remote sources (URL with a network host) get a manifest
// parse for the ladder and are handed to the engine under a marker scheme so
// their manifest loads route through the interceptor. The new session starts
// at position zero, paused.
func (p *Player) OpenSource(ctx context.Context, item MediaItem) error {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.teardownObserversLocked()
	p.closeSessionLocked()

	p.item = item
	p.sessionID = uuid.NewString()
	p.err = nil
	p.position = 0
	p.duration = 0
	p.bitrate = 0
	p.buffering = false
	p.scrub = ScrubNone
	p.ladder = nil
	p.audio = nil
	p.selectedRung = -1
	p.selectedAudio = -1
	p.controlsVisible = true
	p.ic.SetSelection(nil, nil)
	p.setStateLocked(StateLoading)
	metrics.PlaybackBitrate.Set(0)

	src := item.URL
	base, parseErr := url.Parse(item.URL)
	if parseErr == nil && base.Host != "" {
		content, _, _, err := p.fetch.FetchWithCache(ctx, item.URL)
		if err != nil {
			return p.failLocked(err)
		}
		ladder, audio, err := manifest.Parse(content, base)
		if err != nil {
			return p.failLocked(err)
		}
		p.ladder = ladder
		p.audio = audio
		src = p.ic.Schemes().Mark(item.URL)
	}
	p.sourceURL = src

	session, err := p.engine.Load(ctx, src, p.ic)
	if session == nil {
		if err == nil {
			err = fmt.Errorf("player: engine returned no session")
		}
		return p.failLocked(err)
	}
	p.session = session
	p.attachObserversLocked(session)
	p.duration = session.Duration()
	session.SetVolume(p.volume)
	session.Pause()
	p.setStateLocked(StatePaused)
	p.showControlsLocked()

	p.logger.LogPlaybackEvent(logging.EventStateTransition, map[string]interface{}{
		"session": p.sessionID,
		"url":     item.URL,
		"rungs":   len(p.ladder),
		"audio":   len(p.audio),
	})
	return nil
}

// Play starts or resumes playback. From Ended it restarts from zero.
func (p *Player) Play() {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	switch p.state {
	case StateEnded:
		p.position = 0
		p.session.SeekTo(0, nil)
		p.session.Play()
		p.setStateLocked(StatePlaying)
	case StatePaused, StateLoading:
		p.session.Play()
		p.setStateLocked(StatePlaying)
	}
	p.showControlsLocked()
}

// Pause suspends playback.
func (p *Player) Pause() {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || p.state != StatePlaying {
		return
	}
	p.session.Pause()
	p.setStateLocked(StatePaused)
	p.showControlsLocked()
}

// Seek jumps to t seconds, clamped to the known duration, and clears the
// Ended state.
func (p *Player) Seek(t float64) {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	t = p.clampLocked(t)
	p.session.SeekTo(t, nil)
	p.position = t
	if p.state == StateEnded {
		p.setStateLocked(StatePaused)
	}
	p.showControlsLocked()
}

// BeginScrub enters the scrub sub-state, suspending observer-driven position
// updates.
func (p *Player) BeginScrub() {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scrub != ScrubNone {
		return
	}
	p.scrub = ScrubStarted
	p.scrubPos = p.position
	p.showControlsLocked()
}

// Scrub updates the pending scrub position while a scrub is active.
func (p *Player) Scrub(t float64) {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scrub != ScrubStarted {
		return
	}
	t = p.clampLocked(t)
	p.scrubPos = t
	p.position = t
}

// EndScrub issues the seek to the pending scrub position and returns to
// ScrubNone once the seek completes.
func (p *Player) EndScrub() {
	defer p.notifyListener()
	p.mu.Lock()

	if p.scrub != ScrubStarted {
		p.mu.Unlock()
		return
	}
	p.scrub = ScrubEnded
	target := p.scrubPos
	session := p.session
	if p.state == StateEnded {
		p.setStateLocked(StatePaused)
	}
	p.showControlsLocked()
	p.mu.Unlock()

	if session == nil {
		p.mu.Lock()
		p.scrub = ScrubNone
		p.mu.Unlock()
		return
	}

	// Completion may fire on an engine goroutine; relock there.
	session.SeekTo(target, func(finished bool) {
		p.mu.Lock()
		p.scrub = ScrubNone
		p.position = target
		p.mu.Unlock()
		p.notifyListener()
	})
}

// SetVolume adjusts session volume; like every user interaction it restarts
// the auto-hide timer.
func (p *Player) SetVolume(v float64) {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.volume = v
	if p.session != nil {
		p.session.SetVolume(v)
	}
	p.showControlsLocked()
}

// SelectRung pins playback to the ladder rung at index, or returns to the
// adaptive default for -1. The session is rebuilt from the same source URL so
// the interceptor re-filters, and position and pause state carry over.
func (p *Player) SelectRung(ctx context.Context, index int) error {
	return p.selectVariant(ctx, "rendition", index)
}

// SelectAudio pins playback to the audio option at index, or returns to the
// default track for -1.
func (p *Player) SelectAudio(ctx context.Context, index int) error {
	return p.selectVariant(ctx, "audio", index)
}

func (p *Player) selectVariant(ctx context.Context, kind string, index int) error {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	var limit, current int
	if kind == "rendition" {
		limit, current = len(p.ladder), p.selectedRung
	} else {
		limit, current = len(p.audio), p.selectedAudio
	}
	if index < -1 || index >= limit || index == current {
		return nil
	}
	if p.session == nil {
		return fmt.Errorf("player: no active session")
	}

	pos := p.position
	wasPlaying := p.state == StatePlaying

	rungSel := p.selectedRung
	audioSel := p.selectedAudio
	if kind == "rendition" {
		rungSel = index
	} else {
		audioSel = index
	}
	var rung *manifest.Rung
	if rungSel >= 0 {
		r := p.ladder[rungSel]
		rung = &r
	}
	var audio *manifest.AudioOption
	if audioSel >= 0 {
		a := p.audio[audioSel]
		audio = &a
	}

	// Observers go first so nothing watches the half-replaced session, and
	// the interceptor must hold the new selection before the engine can
	// fetch the manifest for the replacement asset.
	p.teardownObserversLocked()
	prevRung, prevAudio := p.ic.Selection()
	p.ic.SetSelection(rung, audio)

	session, err := p.engine.Load(ctx, p.sourceURL, p.ic)
	if session == nil {
		if err == nil {
			err = fmt.Errorf("player: engine returned no session")
		}
		// Keep the last known-good session and selection; surface the
		// error without discarding position.
		p.ic.SetSelection(prevRung, prevAudio)
		if p.session != nil {
			p.attachObserversLocked(p.session)
		}
		p.err = err
		p.logger.Warn("Variant reselection failed", map[string]interface{}{
			"kind":  kind,
			"index": index,
			"error": err.Error(),
		})
		return err
	}

	old := p.session
	p.session = session
	p.sessionID = uuid.NewString()
	p.selectedRung = rungSel
	p.selectedAudio = audioSel
	p.err = nil

	var fb *interceptor.FallbackError
	if errors.As(err, &fb) {
		// Stale selection: the engine got the unfiltered manifest, so
		// playback continues adaptively. Surface the error, keep position.
		p.selectedRung = -1
		p.selectedAudio = -1
		p.err = fb
	} else if err != nil {
		// The engine produced a session anyway; keep it but surface the
		// error instead of swallowing it.
		p.err = err
	}

	p.attachObserversLocked(session)
	p.duration = session.Duration()
	if old != nil {
		if closeErr := old.Close(); closeErr != nil {
			p.logger.Warn("Failed to close previous session", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}

	session.SetVolume(p.volume)
	session.SeekTo(pos, nil)
	p.position = pos
	if wasPlaying {
		session.Play()
		p.setStateLocked(StatePlaying)
	} else {
		session.Pause()
		p.setStateLocked(StatePaused)
	}
	p.showControlsLocked()

	metrics.VariantSwitches.WithLabelValues(kind).Inc()
	p.logger.LogPlaybackEvent(logging.EventVariantSwitch, map[string]interface{}{
		"kind":     kind,
		"index":    index,
		"position": pos,
		"playing":  wasPlaying,
	})
	return err
}

// Close stops playback and releases the session and observers.
func (p *Player) Close() {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.teardownObserversLocked()
	p.closeSessionLocked()
	if p.hideTimer != nil {
		p.hideTimer.Stop()
		p.hideTimer = nil
	}
	p.bitrate = 0
	metrics.PlaybackBitrate.Set(0)
	p.setStateLocked(StateStopped)
}

// Ladder returns the rendition ladder from the current source.
func (p *Player) Ladder() manifest.Ladder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ladder
}

// AudioOptions returns the alternate audio list from the current source.
func (p *Player) AudioOptions() manifest.AudioList {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio
}

// Snapshot returns the current UI-visible state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Bitrate returns the last sampled playback bitrate, 0 with no session.
func (p *Player) Bitrate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bitrate
}

func (p *Player) snapshotLocked() Snapshot {
	return Snapshot{
		State:           p.state,
		Scrub:           p.scrub,
		Item:            p.item,
		Position:        p.position,
		Duration:        p.duration,
		Bitrate:         p.bitrate,
		Buffering:       p.buffering,
		ControlsVisible: p.controlsVisible,
		SelectedRung:    p.selectedRung,
		SelectedAudio:   p.selectedAudio,
		Err:             p.err,
	}
}

func (p *Player) notifyListener() {
	p.mu.Lock()
	fn := p.listener
	snap := p.snapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (p *Player) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.logger.LogPlaybackEvent(logging.EventStateTransition, map[string]interface{}{
		"from": p.state.String(),
		"to":   s.String(),
	})
	p.state = s
	metrics.PlaybackState.Set(float64(s))
}

func (p *Player) failLocked(err error) error {
	p.err = err
	p.setStateLocked(StateFailed)
	return err
}

func (p *Player) clampLocked(t float64) float64 {
	if t < 0 {
		return 0
	}
	if p.duration > 0 && t > p.duration {
		return p.duration
	}
	return t
}

func (p *Player) attachObserversLocked(session Session) {
	timeSub := session.ObserveTime(p.opts.TimeObserveInterval, p.handleTimeTick)
	eventSub := session.ObserveEvents(p.handleEvent)
	p.subs = []Subscription{timeSub, eventSub}
}

func (p *Player) teardownObserversLocked() {
	for _, sub := range p.subs {
		sub.Cancel()
	}
	p.subs = nil
}

func (p *Player) closeSessionLocked() {
	if p.session == nil {
		return
	}
	if err := p.session.Close(); err != nil {
		p.logger.Warn("Failed to close session", map[string]interface{}{
			"error": err.Error(),
		})
	}
	p.session = nil
}

// handleTimeTick consumes the periodic time observer. Scrubbing suspends
// position updates; bitrate is sampled on the same cadence.
func (p *Player) handleTimeTick(t float64) {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || p.scrub != ScrubNone {
		return
	}
	if p.state == StatePlaying {
		p.position = t
	}
	p.bitrate = p.session.Bitrate().Effective()
	metrics.PlaybackBitrate.Set(p.bitrate)
}

func (p *Player) handleEvent(ev Event) {
	defer p.notifyListener()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	switch ev.Kind {
	case EventReady:
		p.duration = p.session.Duration()
		p.buffering = false
	case EventBuffering:
		p.buffering = true
	case EventResumed:
		p.buffering = false
	case EventEnded:
		p.position = p.duration
		p.setStateLocked(StateEnded)
		p.controlsVisible = true
	case EventFailed:
		p.err = ev.Err
		p.setStateLocked(StateFailed)
		p.controlsVisible = true
	}
}

// showControlsLocked makes the control panel visible and restarts the
// auto-hide timer. Stop cannot cancel a timer that already fired and is
// waiting on the coordinator lock, so each timer carries a generation number;
// a stale callback sees a newer generation and does nothing.
func (p *Player) showControlsLocked() {
	p.controlsVisible = true
	if p.hideTimer != nil {
		p.hideTimer.Stop()
	}
	p.hideGen++
	gen := p.hideGen
	p.hideTimer = time.AfterFunc(p.opts.AutoHideDelay, func() { p.autoHide(gen) })
}

// autoHide hides the panel only while playback actively progresses and only
// when invoked by the current timer generation.
func (p *Player) autoHide(gen uint64) {
	p.mu.Lock()
	if gen != p.hideGen || p.state != StatePlaying || p.buffering || p.err != nil {
		p.mu.Unlock()
		return
	}
	p.controlsVisible = false
	p.mu.Unlock()
	p.notifyListener()
}
