package exception

import "errors"

// Config errors
var (
	ErrConfigUnsupportedFormat = errors.New("config: unsupported format")
	ErrConfigInvalid           = errors.New("config: invalid")
)
