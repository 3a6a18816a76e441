// Package diag is the engine's diagnostics sink: structured log events for
// rule matches, trigger outcomes, cache hits, and errors. Storage, rotation,
// and display of events belong to the sink implementation, not the engine.
package diag

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level classifies an event's severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one structured diagnostic record.
type Event struct {
	Component string         `json:"component"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Time      time.Time      `json:"time"`
}

// Sink receives diagnostic events. Implementations must be safe for
// concurrent use; Emit must never block the evaluation path for long.
type Sink interface {
	Emit(e Event)
}

// LogrusSink forwards events to a logrus logger with structured fields.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink wraps the given logger. A nil logger uses the logrus
// standard logger.
func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Emit(e Event) {
	entry := s.logger.WithField("component", e.Component)
	if len(e.Data) > 0 {
		entry = entry.WithFields(logrus.Fields(e.Data))
	}
	switch e.Level {
	case LevelDebug:
		entry.Debug(e.Message)
	case LevelWarn:
		entry.Warn(e.Message)
	case LevelError:
		entry.Error(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// MemorySink keeps the most recent events in a bounded ring. Intended for
// tests and for the /v1/state diagnostics view.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewMemorySink creates a sink retaining at most limit events (default 256).
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 256
	}
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Emitter is a convenience wrapper binding a component name to a sink.
type Emitter struct {
	sink      Sink
	component string
	now       func() time.Time
}

// NewEmitter binds component to sink. A nil sink produces a no-op emitter.
func NewEmitter(sink Sink, component string) *Emitter {
	return &Emitter{sink: sink, component: component, now: time.Now}
}

func (e *Emitter) emit(level Level, msg string, data map[string]any) {
	if e == nil || e.sink == nil {
		return
	}
	e.sink.Emit(Event{
		Component: e.component,
		Level:     level,
		Message:   msg,
		Data:      data,
		Time:      e.now().UTC(),
	})
}

func (e *Emitter) Debug(msg string, data map[string]any) { e.emit(LevelDebug, msg, data) }
func (e *Emitter) Info(msg string, data map[string]any)  { e.emit(LevelInfo, msg, data) }
func (e *Emitter) Warn(msg string, data map[string]any)  { e.emit(LevelWarn, msg, data) }
func (e *Emitter) Error(msg string, data map[string]any) { e.emit(LevelError, msg, data) }
