package civicache

import "errors"

// Sentinel errors. Cache operations themselves never fail; these are only
// returned at the edges: option validation, payload decoding, filter parsing.
var (
	// ErrInvalidOptions indicates [Options] failed validation.
	ErrInvalidOptions = errors.New("civicache: invalid options")

	// ErrInvalidFilter indicates a filter string could not be parsed.
	ErrInvalidFilter = errors.New("civicache: invalid filter")

	// ErrInvalidPayload indicates a server payload could not be decoded.
	ErrInvalidPayload = errors.New("civicache: invalid payload")
)
