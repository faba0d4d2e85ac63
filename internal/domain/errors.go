package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the ipcheck domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrRead is returned when a package could not be fully read.
	ErrRead = errors.New("ipcheck: package read failure")

	// ErrTransport is returned when the validation service could not be reached
	// or answered with a non-2xx status.
	ErrTransport = errors.New("ipcheck: transport failure")

	// ErrMalformedReport is returned when the service response does not have
	// the validation report shape.
	ErrMalformedReport = errors.New("ipcheck: malformed report")

	// ErrSubmitDisabled is returned when Submit is called outside a state
	// that allows submission.
	ErrSubmitDisabled = errors.New("ipcheck: submission disabled")

	// ErrSuperseded is returned for a submission whose package was replaced
	// by a newer selection before the response arrived. Its result is discarded.
	ErrSuperseded = errors.New("ipcheck: superseded by a newer selection")

	// ErrNoSelection is returned when an operation needs a selected package.
	ErrNoSelection = errors.New("ipcheck: no package selected")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("ipcheck: invalid configuration")
)

// ReadError describes a package that could not be read.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is reports ErrRead as a match so callers can test the failure kind.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// TransportError carries the HTTP status of a failed submission.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	StatusText string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.StatusText)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport as a match.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// MalformedError explains why a response body was rejected as a report.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed report: %s: %v", e.Reason, e.Err)
	}
	return "malformed report: " + e.Reason
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is reports ErrMalformedReport as a match.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedReport }

// Retryable reports whether the failure leaves the same package submittable.
// Only transport failures qualify; read and shape failures need a new selection.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
