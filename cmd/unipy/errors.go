package main

import "errors"

// Run errors
var (
	ErrInvalidOption   = errors.New("invalid option")
	ErrInvalidModule   = errors.New("invalid module mapping")
	ErrReadSettings    = errors.New("read settings file")
	ErrReadScript      = errors.New("read script")
	ErrNoCode          = errors.New("no code to execute")
	ErrCreateEngine    = errors.New("creating engine")
	ErrOpenEventLog    = errors.New("open event log")
	ErrExecute         = errors.New("executing code")
	ErrOpenSessionDB   = errors.New("open session ledger")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// exitCodeError carries the interpreter's exit code out of RunE.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return "interpreter exited with non-zero status"
}
