package auditor

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidHandler is returned when registering a nil log handler or sink.
	ErrInvalidHandler = errors.New("auditor: handler must not be nil")
	// ErrInvalidHook is returned when registering a nil hook.
	ErrInvalidHook = errors.New("auditor: hook must not be nil")
	// ErrInvalidAction is returned when registering a route without an action ID.
	ErrInvalidAction = errors.New("auditor: action id must not be empty")
	// ErrClosed is returned once the auditor stopped accepting records.
	ErrClosed = errors.New("auditor: closed")
)

// ConfigError reports an invalid option.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "auditor config: " + e.Field + ": " + e.Message
}

// MultiError collects the errors of every sink that failed for one record.
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var b strings.Builder
	b.WriteString("multiple errors:")
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying errors for use with errors.Is/As.
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
