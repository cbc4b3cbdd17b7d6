package datastructure

import "errors"

// Error kinds the engine distinguishes. All of them surface to the caller
// unchanged; there are no retries below this boundary.
var (
	ErrInvalidState    = errors.New("invalid state")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCorrupt         = errors.New("corrupt data")
)
