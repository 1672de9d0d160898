package modules

import "errors"

var (
	ErrInvalidModule = errors.New("invalid module")
	ErrScanModules   = errors.New("scan modules")
)
