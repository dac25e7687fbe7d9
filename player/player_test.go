package player

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/panoplay/panoplay/fetcher"
	"github.com/panoplay/panoplay/interceptor"
	"github.com/panoplay/panoplay/logging"
)

const masterURL = "https://cdn.example.com/movie/master.m3u8"

const masterText = `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",LANGUAGE="en",URI="audio/en/prog_index.m3u8"
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="Spanish",LANGUAGE="es",URI="audio/es/prog_index.m3u8"
#EXT-X-STREAM-INF:AVERAGE-BANDWIDTH=2168183,BANDWIDTH=2177116,RESOLUTION=1280x720,AUDIO="aud"
v5/prog_index.m3u8
#EXT-X-STREAM-INF:AVERAGE-BANDWIDTH=7968416,BANDWIDTH=8686318,RESOLUTION=1920x1080,AUDIO="aud"
v9/prog_index.m3u8
`

type harness struct {
	player *Player
	engine *MockEngine
	fetch  *fetcher.MockFetcher
	ic     *interceptor.Interceptor
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	mock := fetcher.NewMockFetcher()
	mock.Responses[masterURL] = []byte(masterText)
	logger := logging.NewWithWriter(logging.ERROR, "[test]", io.Discard)
	ic := interceptor.New(interceptor.DefaultSchemes(), mock, logger)
	engine := &MockEngine{SessionDuration: 120}

	return &harness{
		player: New(engine, mock, ic, logger, opts),
		engine: engine,
		fetch:  mock,
		ic:     ic,
	}
}

func openSource(t *testing.T, h *harness) {
	t.Helper()
	if err := h.player.OpenSource(context.Background(), MediaItem{URL: masterURL}); err != nil {
		t.Fatalf("OpenSource() error: %v", err)
	}
}

func TestOpenSource(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)

	snap := h.player.Snapshot()
	if snap.State != StatePaused {
		t.Errorf("state after open = %v, want paused", snap.State)
	}
	if snap.Position != 0 {
		t.Errorf("position = %v, want 0", snap.Position)
	}
	if snap.Duration != 120 {
		t.Errorf("duration = %v, want 120", snap.Duration)
	}
	if snap.SelectedRung != -1 || snap.SelectedAudio != -1 {
		t.Errorf("selection = (%d, %d), want adaptive (-1, -1)", snap.SelectedRung, snap.SelectedAudio)
	}
	if !snap.ControlsVisible {
		t.Error("controls must be visible after open")
	}
	if snap.Item.URL != masterURL {
		t.Errorf("snapshot item URL = %q, want the opened source", snap.Item.URL)
	}

	ladder := h.player.Ladder()
	if len(ladder) != 2 {
		t.Fatalf("ladder has %d rungs, want 2", len(ladder))
	}
	if ladder[0].Height != 720 || ladder[1].Height != 1080 {
		t.Errorf("ladder order = [%d, %d], want ascending [720, 1080]", ladder[0].Height, ladder[1].Height)
	}
	if len(h.player.AudioOptions()) != 2 {
		t.Errorf("audio options = %d, want 2", len(h.player.AudioOptions()))
	}

	// The engine must be handed the marker-scheme URL, not the plain one.
	if len(h.engine.LoadedURLs) != 1 || !h.ic.Schemes().Marked(h.engine.LoadedURLs[0]) {
		t.Errorf("engine loaded %v, want a marked URL", h.engine.LoadedURLs)
	}
	if h.engine.LastSession().Manifest == nil {
		t.Error("engine session should have received intercepted manifest bytes")
	}
}

func TestOpenSourceFetchFailure(t *testing.T) {
	h := newHarness(t, Options{})
	failURL := "https://cdn.example.com/missing.m3u8"
	h.fetch.Errors[failURL] = &fetcher.NetworkError{URL: failURL, Err: errors.New("refused")}

	err := h.player.OpenSource(context.Background(), MediaItem{URL: failURL})
	if err == nil {
		t.Fatal("OpenSource() should fail on fetch error")
	}

	snap := h.player.Snapshot()
	if snap.State != StateFailed {
		t.Errorf("state = %v, want failed", snap.State)
	}
	if snap.Err == nil {
		t.Error("snapshot must carry the failure")
	}
}

func TestOpenSourceResetsPreviousSession(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	first := h.engine.LastSession()

	h.player.Play()
	h.player.Seek(30)

	openSource(t, h)
	if !first.Closed() {
		t.Error("previous session must be closed on reopen")
	}
	if first.ObserverCount() != 0 {
		t.Error("previous session observers must be cancelled")
	}
	snap := h.player.Snapshot()
	if snap.Position != 0 || snap.State != StatePaused {
		t.Errorf("reopen snapshot = (%v, %v), want position 0 paused", snap.Position, snap.State)
	}
}

func TestPlayPause(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()

	h.player.Play()
	if snap := h.player.Snapshot(); snap.State != StatePlaying {
		t.Errorf("state after Play = %v, want playing", snap.State)
	}
	if !session.Playing() {
		t.Error("session must be playing")
	}

	h.player.Pause()
	if snap := h.player.Snapshot(); snap.State != StatePaused {
		t.Errorf("state after Pause = %v, want paused", snap.State)
	}
	if session.Playing() {
		t.Error("session must be paused")
	}

	// Pause while already paused is a no-op.
	h.player.Pause()
	if snap := h.player.Snapshot(); snap.State != StatePaused {
		t.Errorf("state = %v, want paused", snap.State)
	}
}

func TestPlayWithoutSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.player.Play()
	if snap := h.player.Snapshot(); snap.State != StateStopped {
		t.Errorf("state = %v, want stopped", snap.State)
	}
}

func TestEndedRestartsFromZero(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()

	h.player.Play()
	session.EmitEvent(Event{Kind: EventEnded})

	snap := h.player.Snapshot()
	if snap.State != StateEnded {
		t.Fatalf("state = %v, want ended", snap.State)
	}
	if snap.Position != 120 {
		t.Errorf("position at end = %v, want duration", snap.Position)
	}
	if !snap.ControlsVisible {
		t.Error("controls must reappear at end")
	}

	h.player.Play()
	snap = h.player.Snapshot()
	if snap.State != StatePlaying {
		t.Errorf("state after restart = %v, want playing", snap.State)
	}
	if snap.Position != 0 {
		t.Errorf("position after restart = %v, want 0", snap.Position)
	}
	if len(session.SeekCalls) == 0 || session.SeekCalls[len(session.SeekCalls)-1] != 0 {
		t.Errorf("restart must seek to zero, got %v", session.SeekCalls)
	}
}

func TestSeek(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()

	tests := []struct {
		name     string
		target   float64
		expected float64
	}{
		{name: "within duration", target: 42, expected: 42},
		{name: "negative clamps to zero", target: -5, expected: 0},
		{name: "beyond duration clamps", target: 500, expected: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.player.Seek(tt.target)
			if snap := h.player.Snapshot(); snap.Position != tt.expected {
				t.Errorf("position = %v, want %v", snap.Position, tt.expected)
			}
			if session.Position() != tt.expected {
				t.Errorf("session position = %v, want %v", session.Position(), tt.expected)
			}
		})
	}

	t.Run("seek clears ended state", func(t *testing.T) {
		session.EmitEvent(Event{Kind: EventEnded})
		h.player.Seek(10)
		if snap := h.player.Snapshot(); snap.State != StatePaused {
			t.Errorf("state after seek from ended = %v, want paused", snap.State)
		}
	})
}

func TestScrubLifecycle(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()
	h.player.Play()

	h.player.BeginScrub()
	if snap := h.player.Snapshot(); snap.Scrub != ScrubStarted {
		t.Fatalf("scrub = %v, want started", snap.Scrub)
	}

	// Time observer ticks must not move the position mid-scrub.
	h.player.Scrub(50)
	session.EmitTime(12.5)
	if snap := h.player.Snapshot(); snap.Position != 50 {
		t.Errorf("position during scrub = %v, want the scrub target 50", snap.Position)
	}

	h.player.Scrub(900)
	if snap := h.player.Snapshot(); snap.Position != 120 {
		t.Errorf("scrub position = %v, want clamped to 120", snap.Position)
	}

	h.player.Scrub(60)
	h.player.EndScrub()

	// The mock completes seeks synchronously, so the scrub is already over.
	snap := h.player.Snapshot()
	if snap.Scrub != ScrubNone {
		t.Errorf("scrub after end = %v, want none", snap.Scrub)
	}
	if snap.Position != 60 {
		t.Errorf("position after scrub = %v, want 60", snap.Position)
	}
	if len(session.SeekCalls) != 1 || session.SeekCalls[0] != 60 {
		t.Errorf("seek calls = %v, want exactly one seek to 60", session.SeekCalls)
	}
}

func TestScrubOutOfOrderCallsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()

	// Scrub and EndScrub without BeginScrub are no-ops.
	h.player.Scrub(50)
	h.player.EndScrub()
	if snap := h.player.Snapshot(); snap.Scrub != ScrubNone || snap.Position != 0 {
		t.Errorf("snapshot = (%v, %v), want untouched", snap.Scrub, snap.Position)
	}
	if len(session.SeekCalls) != 0 {
		t.Errorf("seek calls = %v, want none", session.SeekCalls)
	}

	// A second BeginScrub mid-scrub must not reset the pending position.
	h.player.BeginScrub()
	h.player.Scrub(30)
	h.player.BeginScrub()
	if snap := h.player.Snapshot(); snap.Position != 30 {
		t.Errorf("position = %v, want 30 preserved", snap.Position)
	}
}

func TestTimeTickUpdatesPositionAndBitrate(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()
	session.SetBitrate(BitrateStats{Average: 2_000_000, Peak: 3_000_000})

	h.player.Play()
	session.EmitTime(17.5)

	snap := h.player.Snapshot()
	if snap.Position != 17.5 {
		t.Errorf("position = %v, want 17.5", snap.Position)
	}
	if snap.Bitrate != 2_000_000 {
		t.Errorf("bitrate = %v, want the average 2000000", snap.Bitrate)
	}

	// Ticks while paused sample bitrate but leave the position alone.
	h.player.Pause()
	session.EmitTime(44)
	if snap := h.player.Snapshot(); snap.Position != 17.5 {
		t.Errorf("paused position = %v, want unchanged 17.5", snap.Position)
	}
}

func TestBufferingEvents(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()
	h.player.Play()

	session.EmitEvent(Event{Kind: EventBuffering})
	if snap := h.player.Snapshot(); !snap.Buffering {
		t.Error("buffering flag must be set")
	}

	session.EmitEvent(Event{Kind: EventResumed})
	if snap := h.player.Snapshot(); snap.Buffering {
		t.Error("buffering flag must clear on resume")
	}
}

func TestEngineFailureEvent(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()
	h.player.Play()

	cause := errors.New("decode error")
	session.EmitEvent(Event{Kind: EventFailed, Err: cause})

	snap := h.player.Snapshot()
	if snap.State != StateFailed {
		t.Errorf("state = %v, want failed", snap.State)
	}
	if !errors.Is(snap.Err, cause) {
		t.Errorf("err = %v, want the engine failure", snap.Err)
	}
	if !snap.ControlsVisible {
		t.Error("controls must reappear on failure")
	}
}

func TestAutoHide(t *testing.T) {
	h := newHarness(t, Options{AutoHideDelay: 20 * time.Millisecond})
	openSource(t, h)

	t.Run("hides during playback", func(t *testing.T) {
		h.player.Play()
		time.Sleep(80 * time.Millisecond)
		if snap := h.player.Snapshot(); snap.ControlsVisible {
			t.Error("controls should hide after the quiet interval while playing")
		}
	})

	t.Run("interaction shows controls again", func(t *testing.T) {
		h.player.SetVolume(0.5)
		if snap := h.player.Snapshot(); !snap.ControlsVisible {
			t.Error("interaction must show the controls")
		}
	})

	t.Run("stays visible while paused", func(t *testing.T) {
		h.player.Pause()
		time.Sleep(80 * time.Millisecond)
		if snap := h.player.Snapshot(); !snap.ControlsVisible {
			t.Error("controls must not hide while paused")
		}
	})
}

// slowVolumeEngine wraps MockEngine with sessions whose SetVolume stalls,
// keeping the coordinator lock held long enough for a pending hide timer to
// expire mid-interaction.
type slowVolumeEngine struct {
	inner *MockEngine
	stall time.Duration
}

func (e *slowVolumeEngine) Load(ctx context.Context, sourceURL string, ic *interceptor.Interceptor) (Session, error) {
	s, err := e.inner.Load(ctx, sourceURL, ic)
	if s == nil {
		return nil, err
	}
	return &slowVolumeSession{MockSession: s.(*MockSession), stall: e.stall}, err
}

type slowVolumeSession struct {
	*MockSession
	stall time.Duration
}

func (s *slowVolumeSession) SetVolume(v float64) {
	time.Sleep(s.stall)
	s.MockSession.SetVolume(v)
}

func TestAutoHideExpiredTimerDuringInteraction(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Responses[masterURL] = []byte(masterText)
	logger := logging.NewWithWriter(logging.ERROR, "[test]", io.Discard)
	ic := interceptor.New(interceptor.DefaultSchemes(), mock, logger)
	engine := &slowVolumeEngine{inner: &MockEngine{SessionDuration: 120}, stall: 30 * time.Millisecond}
	p := New(engine, mock, ic, logger, Options{AutoHideDelay: 10 * time.Millisecond})

	if err := p.OpenSource(context.Background(), MediaItem{URL: masterURL}); err != nil {
		t.Fatalf("OpenSource() error: %v", err)
	}
	p.Play()

	// The pending timer expires while SetVolume still holds the coordinator
	// lock. Once the interaction releases it, the expired callback must not
	// hide the panel the interaction just showed.
	p.SetVolume(0.5)
	time.Sleep(3 * time.Millisecond)
	if snap := p.Snapshot(); !snap.ControlsVisible {
		t.Error("expired timer hid the controls right after an interaction")
	}

	// The restarted timer still hides on its own schedule.
	time.Sleep(60 * time.Millisecond)
	if snap := p.Snapshot(); snap.ControlsVisible {
		t.Error("controls should hide after the restarted quiet interval")
	}
}

// warnEngine returns a session together with a non-fallback error on every
// load after the first, the way an engine reports a degraded but usable
// asset.
type warnEngine struct {
	inner *MockEngine
	warn  error
	calls int
}

func (e *warnEngine) Load(ctx context.Context, sourceURL string, ic *interceptor.Interceptor) (Session, error) {
	e.calls++
	s, err := e.inner.Load(ctx, sourceURL, ic)
	if e.calls > 1 && s != nil && err == nil {
		return s, e.warn
	}
	return s, err
}

func TestSelectRungSurfacesErrorAlongsideSession(t *testing.T) {
	mock := fetcher.NewMockFetcher()
	mock.Responses[masterURL] = []byte(masterText)
	logger := logging.NewWithWriter(logging.ERROR, "[test]", io.Discard)
	ic := interceptor.New(interceptor.DefaultSchemes(), mock, logger)
	warn := errors.New("decoder reinitialized in degraded mode")
	engine := &warnEngine{inner: &MockEngine{SessionDuration: 120}, warn: warn}
	p := New(engine, mock, ic, logger, Options{})

	if err := p.OpenSource(context.Background(), MediaItem{URL: masterURL}); err != nil {
		t.Fatalf("OpenSource() error: %v", err)
	}
	p.Seek(42)

	err := p.SelectRung(context.Background(), 1)
	if !errors.Is(err, warn) {
		t.Fatalf("SelectRung() error = %v, want the engine warning", err)
	}

	snap := p.Snapshot()
	if !errors.Is(snap.Err, warn) {
		t.Errorf("snapshot err = %v, want the engine warning surfaced", snap.Err)
	}
	if snap.SelectedRung != 1 {
		t.Errorf("selected rung = %d, want 1 applied", snap.SelectedRung)
	}
	if snap.Position != 42 {
		t.Errorf("position = %v, want 42 preserved", snap.Position)
	}
	if len(engine.inner.Sessions) != 2 {
		t.Errorf("sessions = %d, want the swap to have happened", len(engine.inner.Sessions))
	}
}

func TestSetVolume(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()

	h.player.SetVolume(0.25)
	if session.Volume() != 0.25 {
		t.Errorf("session volume = %v, want 0.25", session.Volume())
	}

	h.player.SetVolume(1.5)
	if session.Volume() != 1 {
		t.Errorf("volume = %v, want clamped to 1", session.Volume())
	}
	h.player.SetVolume(-1)
	if session.Volume() != 0 {
		t.Errorf("volume = %v, want clamped to 0", session.Volume())
	}
}

func TestSelectRungPreservesPositionAndPause(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	first := h.engine.LastSession()

	h.player.Seek(42)

	if err := h.player.SelectRung(context.Background(), 1); err != nil {
		t.Fatalf("SelectRung() error: %v", err)
	}

	if len(h.engine.Sessions) != 2 {
		t.Fatalf("sessions = %d, want a replacement session", len(h.engine.Sessions))
	}
	second := h.engine.LastSession()

	if !first.Closed() {
		t.Error("previous session must be closed after the swap")
	}
	if first.ObserverCount() != 0 {
		t.Error("previous session observers must be cancelled")
	}
	if second.ObserverCount() == 0 {
		t.Error("replacement session must have observers attached")
	}
	if second.Position() != 42 {
		t.Errorf("replacement position = %v, want 42 carried over", second.Position())
	}
	if second.Playing() {
		t.Error("replacement must stay paused when the old session was paused")
	}

	snap := h.player.Snapshot()
	if snap.SelectedRung != 1 {
		t.Errorf("selected rung = %d, want 1", snap.SelectedRung)
	}
	if snap.Position != 42 {
		t.Errorf("position = %v, want 42", snap.Position)
	}
	if snap.State != StatePaused {
		t.Errorf("state = %v, want paused", snap.State)
	}

	rung, _ := h.ic.Selection()
	if rung == nil || rung.Height != 1080 {
		t.Errorf("interceptor selection = %+v, want the 1080p rung", rung)
	}
}

func TestSelectRungWhilePlaying(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	h.player.Play()

	if err := h.player.SelectRung(context.Background(), 0); err != nil {
		t.Fatalf("SelectRung() error: %v", err)
	}
	second := h.engine.LastSession()
	if !second.Playing() {
		t.Error("replacement session must resume playback")
	}
	if snap := h.player.Snapshot(); snap.State != StatePlaying {
		t.Errorf("state = %v, want playing", snap.State)
	}
}

func TestSelectAudioKeepsRungSelection(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)

	if err := h.player.SelectRung(context.Background(), 0); err != nil {
		t.Fatalf("SelectRung() error: %v", err)
	}
	if err := h.player.SelectAudio(context.Background(), 1); err != nil {
		t.Fatalf("SelectAudio() error: %v", err)
	}

	snap := h.player.Snapshot()
	if snap.SelectedRung != 0 || snap.SelectedAudio != 1 {
		t.Errorf("selection = (%d, %d), want (0, 1)", snap.SelectedRung, snap.SelectedAudio)
	}

	rung, audio := h.ic.Selection()
	if rung == nil || audio == nil {
		t.Fatal("interceptor must hold both selections")
	}
	if audio.Name != "Spanish" {
		t.Errorf("audio selection = %q, want Spanish", audio.Name)
	}
}

func TestSelectRungOutOfRange(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)

	for _, index := range []int{-2, 2, 99} {
		if err := h.player.SelectRung(context.Background(), index); err != nil {
			t.Errorf("SelectRung(%d) error = %v, want nil no-op", index, err)
		}
	}
	if len(h.engine.Sessions) != 1 {
		t.Errorf("sessions = %d, out-of-range selection must not reload", len(h.engine.Sessions))
	}
	if snap := h.player.Snapshot(); snap.SelectedRung != -1 {
		t.Errorf("selected rung = %d, want untouched -1", snap.SelectedRung)
	}
}

func TestSelectRungRepeatedIsNoOp(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)

	if err := h.player.SelectRung(context.Background(), 1); err != nil {
		t.Fatalf("SelectRung() error: %v", err)
	}
	if err := h.player.SelectRung(context.Background(), 1); err != nil {
		t.Fatalf("repeated SelectRung() error: %v", err)
	}
	if len(h.engine.Sessions) != 2 {
		t.Errorf("sessions = %d, repeated selection must not reload", len(h.engine.Sessions))
	}
}

func TestSelectRungFailureKeepsLastGoodSession(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	first := h.engine.LastSession()
	h.player.Seek(42)

	h.engine.LoadErr = errors.New("engine out of resources")
	err := h.player.SelectRung(context.Background(), 1)
	if err == nil {
		t.Fatal("SelectRung() should surface the load failure")
	}

	if first.Closed() {
		t.Error("last good session must survive a failed reselection")
	}
	if first.ObserverCount() == 0 {
		t.Error("observers must be reattached to the surviving session")
	}

	snap := h.player.Snapshot()
	if snap.SelectedRung != -1 {
		t.Errorf("selected rung = %d, want the previous -1", snap.SelectedRung)
	}
	if snap.Position != 42 {
		t.Errorf("position = %v, want 42 preserved", snap.Position)
	}
	if snap.Err == nil {
		t.Error("snapshot must surface the failure")
	}

	rung, audio := h.ic.Selection()
	if rung != nil || audio != nil {
		t.Error("interceptor selection must roll back to the previous one")
	}
}

func TestSelectRungStaleFallsBackToAdaptive(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	h.player.Seek(30)

	// Upstream drops the 1080p rendition between the parse and the switch.
	shrunk := `#EXTM3U
#EXT-X-STREAM-INF:AVERAGE-BANDWIDTH=2168183,BANDWIDTH=2177116,RESOLUTION=1280x720
v5/prog_index.m3u8
`
	h.fetch.Responses[masterURL] = []byte(shrunk)

	err := h.player.SelectRung(context.Background(), 1)
	var fb *interceptor.FallbackError
	if !errors.As(err, &fb) {
		t.Fatalf("SelectRung() error = %v, want *FallbackError", err)
	}

	snap := h.player.Snapshot()
	if snap.SelectedRung != -1 || snap.SelectedAudio != -1 {
		t.Errorf("selection = (%d, %d), want reset to adaptive", snap.SelectedRung, snap.SelectedAudio)
	}
	if snap.Position != 30 {
		t.Errorf("position = %v, want 30 preserved", snap.Position)
	}
	if snap.Err == nil {
		t.Error("snapshot must surface the fallback")
	}
	if len(h.engine.Sessions) != 2 {
		t.Errorf("sessions = %d, fallback still swaps to the new session", len(h.engine.Sessions))
	}
	if h.engine.LastSession().Manifest == nil {
		t.Error("fallback session must still hold manifest bytes")
	}
}

func TestListenerReceivesSnapshots(t *testing.T) {
	h := newHarness(t, Options{})

	var snaps []Snapshot
	h.player.SetListener(func(s Snapshot) {
		snaps = append(snaps, s)
	})

	openSource(t, h)
	h.player.Play()

	if len(snaps) < 2 {
		t.Fatalf("listener saw %d snapshots, want at least open and play", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if last.State != StatePlaying {
		t.Errorf("last snapshot state = %v, want playing", last.State)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, Options{})
	openSource(t, h)
	session := h.engine.LastSession()
	h.player.Play()

	h.player.Close()

	if !session.Closed() {
		t.Error("session must be closed")
	}
	if session.ObserverCount() != 0 {
		t.Error("observers must be cancelled")
	}
	if snap := h.player.Snapshot(); snap.State != StateStopped {
		t.Errorf("state = %v, want stopped", snap.State)
	}
	if h.player.Bitrate() != 0 {
		t.Errorf("bitrate = %v, want 0 with no session", h.player.Bitrate())
	}
}
