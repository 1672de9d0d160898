package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jingkaihe/unipy/pkg/logstream"
)

// SlogFunc returns a callback that logs each write at level on logger.
// A single trailing line break is trimmed, and writes that consist only of
// a line break are dropped since interpreters often emit them separately.
func SlogFunc(logger *slog.Logger, level slog.Level, args ...any) logstream.LogFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(text string) {
		msg := strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		if msg == "" && text != "" {
			return
		}
		logger.Log(context.Background(), level, msg, args...)
	}
}

// Tee fans one write out to every non-nil callback in order.
func Tee(fns ...logstream.LogFunc) logstream.LogFunc {
	live := make([]logstream.LogFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			live = append(live, fn)
		}
	}
	return func(text string) {
		for _, fn := range live {
			fn(text)
		}
	}
}
