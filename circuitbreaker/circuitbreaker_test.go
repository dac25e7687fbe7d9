package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errTestFailure = errors.New("test failure")

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		expectedState State
	}{
		{
			name: "with explicit config",
			config: Config{
				FailureThreshold: 3,
				Timeout:          time.Second,
				HalfOpenRequests: 2,
			},
			expectedState: StateClosed,
		},
		{
			name:          "zero config takes defaults",
			config:        Config{},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(tt.config)
			if cb.State() != tt.expectedState {
				t.Errorf("State() = %v, want %v", cb.State(), tt.expectedState)
			}
		})
	}
}

func TestExecuteClosedState(t *testing.T) {
	t.Run("successful execution stays closed", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 3, Timeout: time.Second})

		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Errorf("Execute() error: %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("State() = %v, want CLOSED", cb.State())
		}
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})

		for i := 0; i < 3; i++ {
			if err := cb.Execute(func() error { return errTestFailure }); !errors.Is(err, errTestFailure) {
				t.Fatalf("Execute() error = %v, want errTestFailure", err)
			}
		}
		if cb.State() != StateOpen {
			t.Errorf("State() after threshold = %v, want OPEN", cb.State())
		}
	})

	t.Run("success resets failure count", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 2, Timeout: time.Minute})

		_ = cb.Execute(func() error { return errTestFailure })
		_ = cb.Execute(func() error { return nil })
		_ = cb.Execute(func() error { return errTestFailure })

		if cb.State() != StateClosed {
			t.Errorf("State() = %v, want CLOSED after interleaved success", cb.State())
		}
	})
}

func TestExecuteOpenState(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Minute})
	_ = cb.Execute(func() error { return errTestFailure })

	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want OPEN", cb.State())
	}

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open circuit must fail fast without invoking the function")
	}
}

func TestHalfOpenTransition(t *testing.T) {
	t.Run("closes after successful probe", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenRequests: 1})
		_ = cb.Execute(func() error { return errTestFailure })

		time.Sleep(20 * time.Millisecond)

		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe Execute() error: %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("State() = %v, want CLOSED after successful probe", cb.State())
		}
	})

	t.Run("reopens on failed probe", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenRequests: 1})
		_ = cb.Execute(func() error { return errTestFailure })

		time.Sleep(20 * time.Millisecond)

		if err := cb.Execute(func() error { return errTestFailure }); !errors.Is(err, errTestFailure) {
			t.Fatalf("probe Execute() error = %v, want errTestFailure", err)
		}
		if cb.State() != StateOpen {
			t.Errorf("State() = %v, want OPEN after failed probe", cb.State())
		}
	})
}

func TestReset(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Minute})
	_ = cb.Execute(func() error { return errTestFailure })

	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want OPEN", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("State() after Reset = %v, want CLOSED", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute() after Reset error: %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}
