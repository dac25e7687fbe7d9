package player

import (
	"context"
	"sync"
	"time"

	"github.com/panoplay/panoplay/interceptor"
)

// MockEngine is a test double for the host media engine. Load routes marked
// URLs through the bound interceptor the way a real engine's resource-loader
// hook would, and records what it was asked to load.
type MockEngine struct {
	mu sync.Mutex

	// LoadErr, when set, makes Load fail outright
	LoadErr error
	// SessionDuration is the duration reported by created sessions
	SessionDuration float64

	// LoadedURLs records every source URL handed to Load, in order
	LoadedURLs []string
	// Sessions records every session created, in order
	Sessions []*MockSession
}

// Load creates a new mock session, serving the manifest through the
// interceptor when the URL carries a marker scheme. An interceptor fallback
// still yields a session alongside the error, mirroring the engine contract.
func (e *MockEngine) Load(ctx context.Context, sourceURL string, ic *interceptor.Interceptor) (Session, error) {
	e.mu.Lock()
	e.LoadedURLs = append(e.LoadedURLs, sourceURL)
	loadErr := e.LoadErr
	duration := e.SessionDuration
	e.mu.Unlock()

	if loadErr != nil {
		return nil, loadErr
	}

	var manifestBytes []byte
	var interceptErr error
	if ic != nil && ic.Handles(sourceURL) {
		manifestBytes, interceptErr = ic.Intercept(ctx, sourceURL)
		if manifestBytes == nil && interceptErr != nil {
			return nil, interceptErr
		}
	}

	s := &MockSession{
		duration: duration,
		Manifest: manifestBytes,
	}

	e.mu.Lock()
	e.Sessions = append(e.Sessions, s)
	e.mu.Unlock()

	return s, interceptErr
}

// LastSession returns the most recently created session, or nil.
func (e *MockEngine) LastSession() *MockSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Sessions) == 0 {
		return nil
	}
	return e.Sessions[len(e.Sessions)-1]
}

// MockSession is the session created by MockEngine. Tests drive observers
// through EmitTime and EmitEvent; seeks complete synchronously.
type MockSession struct {
	mu sync.Mutex

	// Manifest holds the bytes served by the interceptor at load, if any
	Manifest []byte

	duration float64
	playing  bool
	closed   bool
	volume   float64
	position float64
	bitrate  BitrateStats

	SeekCalls []float64

	timeObservers  map[int]func(float64)
	eventObservers map[int]func(Event)
	nextObserverID int
}

// Play marks the session as playing
func (s *MockSession) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

// Pause marks the session as paused
func (s *MockSession) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// SeekTo records the seek and completes it synchronously
func (s *MockSession) SeekTo(t float64, completion func(finished bool)) {
	s.mu.Lock()
	s.position = t
	s.SeekCalls = append(s.SeekCalls, t)
	s.mu.Unlock()
	if completion != nil {
		completion(true)
	}
}

// SetVolume records the session volume
func (s *MockSession) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

// Duration returns the configured session duration
func (s *MockSession) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// ObserveTime registers a time observer
func (s *MockSession) ObserveTime(interval time.Duration, fn func(t float64)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeObservers == nil {
		s.timeObservers = make(map[int]func(float64))
	}
	id := s.nextObserverID
	s.nextObserverID++
	s.timeObservers[id] = fn
	return &mockSubscription{cancel: func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timeObservers, id)
	}}
}

// ObserveEvents registers an event observer
func (s *MockSession) ObserveEvents(fn func(Event)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventObservers == nil {
		s.eventObservers = make(map[int]func(Event))
	}
	id := s.nextObserverID
	s.nextObserverID++
	s.eventObservers[id] = fn
	return &mockSubscription{cancel: func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.eventObservers, id)
	}}
}

// Bitrate reports the configured bitrate stats
func (s *MockSession) Bitrate() BitrateStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitrate
}

// SetBitrate configures the stats returned by Bitrate
func (s *MockSession) SetBitrate(stats BitrateStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitrate = stats
}

// Close marks the session closed
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Playing reports whether the session is currently playing
func (s *MockSession) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Closed reports whether Close was called
func (s *MockSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Position returns the last sought or initial position
func (s *MockSession) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Volume returns the last set volume
func (s *MockSession) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// ObserverCount returns the number of registered observers
func (s *MockSession) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timeObservers) + len(s.eventObservers)
}

// EmitTime delivers a time tick to all registered time observers
func (s *MockSession) EmitTime(t float64) {
	s.mu.Lock()
	fns := make([]func(float64), 0, len(s.timeObservers))
	for _, fn := range s.timeObservers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

// EmitEvent delivers a lifecycle event to all registered event observers
func (s *MockSession) EmitEvent(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.eventObservers))
	for _, fn := range s.eventObservers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type mockSubscription struct {
	once   sync.Once
	cancel func()
}

func (m *mockSubscription) Cancel() {
	m.once.Do(m.cancel)
}
