package logging

import "time"

// Event is one decoded write from an engine output stream.
// Required fields: Timestamp, SessionID, Stream, Level, Text.
type Event struct {
	Timestamp   time.Time `json:"ts"`
	SessionID   string    `json:"session_id"`
	Interpreter string    `json:"interpreter,omitempty"`
	Stream      string    `json:"stream"`
	Level       string    `json:"level"`
	Text        string    `json:"text"`
}

// Stream names.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Level names, matching slog's level strings.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)
