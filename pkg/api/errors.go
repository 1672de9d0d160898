package api

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrParseConfig        = errors.New("parse configuration")
	ErrInvalidInterpreter = errors.New("invalid interpreter arguments")
)
