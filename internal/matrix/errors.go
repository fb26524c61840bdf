package matrix

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned (wrapped) for every malformed dimension,
// template or driver setting. It is detected before any process is spawned.
var ErrInvalidConfig = errors.New("invalid config")

// ConfigError describes which part of the configuration is malformed.
type ConfigError struct {
	Field  string // e.g. "dimensions[1]", "command[4]"
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidConfig, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Invalid builds a ConfigError for field with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
