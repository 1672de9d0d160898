package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/jingkaihe/unipy/internal/errx"
)

// JSONLWriter encodes output events one per line.
// It implements Sink and is safe for concurrent use.
type JSONLWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewJSONLWriter appends events to the file at path, creating it if needed.
// The parent directory must already exist.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errx.Wrap(ErrCreateLogFile, err)
	}
	return &JSONLWriter{w: f, closer: f, enc: json.NewEncoder(f)}, nil
}

// NewJSONLStream writes events to w. Close does not close w.
func NewJSONLStream(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: w, enc: json.NewEncoder(w)}
}

func (w *JSONLWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(event); err != nil {
		return errx.Wrap(ErrWriteEvent, err)
	}
	return nil
}

// Close syncs and closes the file when the writer owns one.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	if f, ok := w.closer.(*os.File); ok {
		_ = f.Sync()
	}
	err := w.closer.Close()
	w.closer = nil
	if err != nil {
		return errx.Wrap(ErrCloseWriter, err)
	}
	return nil
}
