package optimize

import (
	"errors"
	"strings"
)

const (
	// MessageMissingInput is the public message for a validation failure.
	MessageMissingInput = "Both CV and Job Description are required."
	// MessageProviderFailure is the public message for any provider failure.
	MessageProviderFailure = "Failed to optimize CV. Please try again."
)

// ErrProvider is returned for any transport, provider or response failure.
// The underlying cause is logged, never surfaced.
var ErrProvider = errors.New(MessageProviderFailure)

// ValidationError names the request fields that were empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}
