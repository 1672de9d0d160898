package logstream

import "errors"

var (
	ErrInvalidArgument = errors.New("logstream: invalid argument")
	ErrOutOfRange      = errors.New("logstream: argument out of range")
	ErrUnsupported     = errors.New("logstream: operation not supported")
)
