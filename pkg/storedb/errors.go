package storedb

import "errors"

var (
	ErrOpenDB   = errors.New("storedb: open database")
	ErrMigrate  = errors.New("storedb: apply migration")
	ErrNoModule = errors.New("storedb: module name is required")
)
