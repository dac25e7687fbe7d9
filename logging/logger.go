// Package logging provides leveled structured logging for the player core.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log level constants define the severity hierarchy for filtering log output
const (
	DEBUG LogLevel = iota // DEBUG is the lowest severity level for detailed diagnostics
	INFO                  // INFO is for general informational messages
	WARN                  // WARN is for warning messages that don't prevent operation
	ERROR                 // ERROR is the highest severity for error conditions
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured logging with configurable levels
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
	prefix string
}

// New creates a new Logger with the specified level
func New(level LogLevel, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
	}
}

// NewWithWriter creates a new Logger with custom output writer
func NewWithWriter(level LogLevel, prefix string, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
		prefix: prefix,
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// shouldLog checks if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// log writes a log message with the given level and fields
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	var sb strings.Builder

	if l.prefix != "" {
		sb.WriteString(l.prefix)
		sb.WriteString(" ")
	}

	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		sb.WriteString(" |")
		for k, v := range fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
	}

	l.logger.Println(sb.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log(DEBUG, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log(INFO, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log(WARN, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.log(ERROR, msg, fields)
}

// PlaybackEvent represents a type of playback-related event
type PlaybackEvent string

// Playback event constants identify state transitions worth tracing
const (
	EventStateTransition  PlaybackEvent = "state_transition"   // EventStateTransition indicates a transport state change
	EventVariantSwitch    PlaybackEvent = "variant_switch"     // EventVariantSwitch indicates a rendition or audio reselection
	EventInterception     PlaybackEvent = "interception"       // EventInterception indicates a manifest load was intercepted
	EventRewriteFallback  PlaybackEvent = "rewrite_fallback"   // EventRewriteFallback indicates a filter failure served the unfiltered manifest
	EventBreakerChange    PlaybackEvent = "breaker_change"     // EventBreakerChange indicates a circuit breaker transition
	EventManifestFetch    PlaybackEvent = "manifest_fetch"     // EventManifestFetch indicates an upstream manifest fetch
)

// LogPlaybackEvent logs a playback event with optional context fields
func (l *Logger) LogPlaybackEvent(event PlaybackEvent, fields map[string]interface{}) {
	merged := map[string]interface{}{"event": string(event)}
	for k, v := range fields {
		merged[k] = v
	}
	l.Info("Playback event", merged)
}

// LogCircuitBreakerChange logs a circuit breaker state transition
func (l *Logger) LogCircuitBreakerChange(oldState, newState, host string) {
	l.LogPlaybackEvent(EventBreakerChange, map[string]interface{}{
		"old_state": oldState,
		"new_state": newState,
		"host":      host,
	})
}
