package config

import "errors"

// Error variables for config loading.
var (
	ErrConfigFileNotFound  = errors.New("config file not found")
	ErrConfigFileRead      = errors.New("cannot read config file")
	ErrConfigInvalid       = errors.New("invalid config file")
	ErrResolvedStatusEmpty = errors.New("resolved_status cannot be empty")
	ErrNegativeDuration    = errors.New("duration cannot be negative")
	ErrInvalidLogLevel     = errors.New("invalid log level")
)
