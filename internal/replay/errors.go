package replay

import "errors"

// Error variables for script decoding and replay.
var (
	ErrInvalidScript  = errors.New("invalid script")
	ErrUnknownOp      = errors.New("unknown op")
	ErrMissingField   = errors.New("missing field")
	ErrUnknownBinding = errors.New("unknown binding")
	ErrNoClock        = errors.New("advance needs a virtual clock")
)
