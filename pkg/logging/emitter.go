package logging

import (
	"time"

	"github.com/jingkaihe/unipy/pkg/logstream"
)

// EmitterConfig holds the static metadata of one engine session.
// All fields are stamped onto every event automatically.
type EmitterConfig struct {
	SessionID   string
	Interpreter string
}

// Emitter stamps session metadata onto output text and dispatches the
// resulting events to one or more sinks.
//
// A nil *Emitter drops every event, so an optional event log can be
// wired unconditionally.
type Emitter struct {
	config EmitterConfig
	sinks  []Sink
}

// NewEmitter creates an emitter with the given configuration and sinks.
func NewEmitter(cfg EmitterConfig, sinks ...Sink) *Emitter {
	return &Emitter{
		config: cfg,
		sinks:  sinks,
	}
}

// Emit writes one event to every registered sink and returns the first
// error encountered.
func (e *Emitter) Emit(stream, level, text string) error {
	if e == nil {
		return nil
	}
	event := &Event{
		Timestamp:   time.Now().UTC(),
		SessionID:   e.config.SessionID,
		Interpreter: e.config.Interpreter,
		Stream:      stream,
		Level:       level,
		Text:        text,
	}

	for _, sink := range e.sinks {
		if err := sink.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// LogFunc adapts the emitter to a logstream callback for one stream.
// Emission is best-effort; sink errors are dropped because a stream
// callback has no way to report them.
func (e *Emitter) LogFunc(stream, level string) logstream.LogFunc {
	return func(text string) {
		_ = e.Emit(stream, level, text)
	}
}

// Close closes all sinks. Returns the first error encountered.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	var firstErr error
	for _, sink := range e.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
