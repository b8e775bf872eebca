package cli

import "errors"

// Error variables for CLI commands.
var (
	ErrScriptRequired = errors.New("script path is required (use - for stdin)")
	ErrNoInput        = errors.New("no stdin available")
	ErrFilterRequired = errors.New("--filter is required")
	ErrReportRequired = errors.New("report JSON is required")
	ErrTooManyArgs    = errors.New("too many arguments")
	ErrUsage          = errors.New("usage")
)
