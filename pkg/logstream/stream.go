// Package logstream provides a write-only byte stream that decodes every
// write as UTF-8 and hands the text to a logging callback.
//
// A Stream is what an engine's stdout or stderr gets pointed at: each write
// becomes exactly one callback invocation carrying the decoded text of that
// write. Reading, seeking and truncation are never supported.
package logstream

import (
	"io"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/jingkaihe/unipy/internal/errx"
)

// LogFunc receives the decoded text of a single write.
type LogFunc func(text string)

// NoPosition is reported by Position; the stream has no readable offset.
const NoPosition int64 = -1

var (
	_ io.Writer = (*Stream)(nil)
	_ io.Reader = (*Stream)(nil)
	_ io.Seeker = (*Stream)(nil)
)

// Stream forwards written bytes to a LogFunc. It is safe for concurrent use;
// writes are serialized and each one invokes the callback while holding the
// lock, so callbacks never interleave.
type Stream struct {
	mu      sync.Mutex
	logFn   LogFunc
	scratch []byte
	dec     *encoding.Decoder
}

// New returns a Stream that forwards to logFn.
func New(logFn LogFunc) (*Stream, error) {
	if logFn == nil {
		return nil, errx.With(ErrInvalidArgument, ": logger must not be nil")
	}
	return &Stream{
		logFn: logFn,
		dec:   unicode.UTF8.NewDecoder(),
	}, nil
}

// WriteRange decodes chunk[offset:offset+count] and passes the text to the
// callback before returning.
//
// A zero count is accepted at any offset up to and including len(chunk), so
// an empty but non-nil chunk is a valid empty write. The callback still runs
// once, with "".
func (s *Stream) WriteRange(chunk []byte, offset, count int) error {
	if chunk == nil {
		return errx.With(ErrInvalidArgument, ": chunk must not be nil")
	}
	if offset < 0 {
		return errx.With(ErrOutOfRange, ": offset %d should not be negative", offset)
	}
	if count < 0 {
		return errx.With(ErrOutOfRange, ": count %d should not be negative", count)
	}
	if offset > len(chunk) || (offset == len(chunk) && count > 0) {
		return errx.With(ErrOutOfRange, ": offset %d is beyond chunk length %d", offset, len(chunk))
	}
	if count > len(chunk)-offset {
		return errx.With(ErrOutOfRange, ": offset %d + count %d exceeds chunk length %d", offset, count, len(chunk))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cap(s.scratch) < count {
		s.scratch = make([]byte, count)
	}
	s.scratch = s.scratch[:count]
	copy(s.scratch, chunk[offset:offset+count])

	s.logFn(s.decode(s.scratch))
	return nil
}

// decode never fails: ill-formed sequences become U+FFFD.
func (s *Stream) decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := s.dec.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Write implements io.Writer. An empty p is a no-op and does not reach the
// callback, matching how io.Writer callers treat empty writes.
func (s *Stream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.WriteRange(p, 0, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush is a no-op; nothing is buffered between writes.
func (s *Stream) Flush() error { return nil }

func (s *Stream) Read(p []byte) (int, error) {
	return 0, errx.With(ErrUnsupported, ": read")
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	return NoPosition, errx.With(ErrUnsupported, ": seek")
}

// Truncate mirrors a stream's set-length operation and always fails.
func (s *Stream) Truncate(size int64) error {
	return errx.With(ErrUnsupported, ": set length")
}

func (s *Stream) SetPosition(pos int64) error {
	return errx.With(ErrUnsupported, ": set position")
}

func (s *Stream) Position() int64 { return NoPosition }

// Length is always zero; written bytes are not retained.
func (s *Stream) Length() int64 { return 0 }

func (s *Stream) CanRead() bool  { return false }
func (s *Stream) CanSeek() bool  { return false }
func (s *Stream) CanWrite() bool { return true }
