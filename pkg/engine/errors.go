package engine

import "errors"

var (
	ErrCreateStream      = errors.New("create output stream")
	ErrInvalidScope      = errors.New("invalid scope variable")
	ErrBuildCommand      = errors.New("build interpreter command")
	ErrStartInterpreter  = errors.New("start interpreter")
	ErrExecutionCanceled = errors.New("execution canceled")
)
