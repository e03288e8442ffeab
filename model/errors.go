package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups for unknown rules, users or actions.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks failures of the durable backing store. Callers must
	// surface it rather than silently dropping the operation.
	ErrStorage = errors.New("storage unavailable")
	// ErrPrimitive marks failed platform enforcement calls.
	ErrPrimitive = errors.New("platform action failed")
)

// ConfigError is a malformed or inconsistent catalog/ladder configuration.
// Fatal at load time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}
