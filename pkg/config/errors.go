package config

import "errors"

var (
	// ErrParseFailed is returned when environment variables cannot be parsed
	// into the target struct, including missing `required` values.
	ErrParseFailed = errors.New("config: failed to parse environment")

	// ErrEnvFileNotFound is returned by LoadEnv for an unreadable env file.
	ErrEnvFileNotFound = errors.New("config: env file not found")

	// ErrNilPointer is returned when Load receives a nil target.
	ErrNilPointer = errors.New("config: nil pointer provided")
)
