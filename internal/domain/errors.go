package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an update or delete references an ID the
// ledger does not hold. It signals a stale client-side reference.
var ErrNotFound = errors.New("transaction not found")

// ErrDuplicateID is returned when an import batch carries an ID that is
// already held by an entry of another source.
var ErrDuplicateID = errors.New("duplicate transaction id")

// ValidationError rejects malformed input before it reaches the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ConfigError reports a missing credential or setting required by an adapter.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
