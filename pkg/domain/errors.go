package domain

import (
	"errors"
	"fmt"
)

// ErrJourneyNotFound is returned when a journey identifier is missing or has no metadata.
// Callers recover by initialising a journey and redirecting to the requested step.
var ErrJourneyNotFound = errors.New("journey not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrAlreadyRegistered is the domain conflict reported by final submission
// when the property has been registered before.
var ErrAlreadyRegistered = errors.New("property already registered")

// ErrStepStateMissing is returned when a step needs an answer that is not in the answer bag,
// e.g. reaching check answers without a prerequisite answer.
var ErrStepStateMissing = errors.New("step state missing")

// ConfigurationError reports a mistake in the declaration of a journey graph.
// It is not recoverable at runtime and is expected to surface in tests.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "journey configuration: " + e.Msg
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// MissingStateError names the step whose stored answer could not be decoded.
type MissingStateError struct {
	Step string
	Need string
}

func (e *MissingStateError) Error() string {
	return fmt.Sprintf("step %s: %s is not available in the journey state", e.Step, e.Need)
}

func (e *MissingStateError) Unwrap() error {
	return ErrStepStateMissing
}
