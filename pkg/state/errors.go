package state

import "errors"

var (
	ErrOpenStore       = errors.New("open session store")
	ErrSaveSession     = errors.New("save session")
	ErrReadSession     = errors.New("read session")
	ErrSessionNotFound = errors.New("session not found")
)
