package config

import "errors"

var (
	// ErrLoadingEnvFile is returned when an explicitly requested .env file cannot be read
	ErrLoadingEnvFile = errors.New("failed to load env file")

	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when parsed values fail validation
	ErrInvalidConfig = errors.New("invalid configuration")
)
