// Package errx wraps package sentinel errors with context while keeping them
// matchable through errors.Is.
package errx

import "fmt"

// Wrap returns an error that matches both sentinel and cause.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With appends formatted detail to sentinel. The format may itself use %w.
func With(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w"+format, append([]any{sentinel}, args...)...)
}
