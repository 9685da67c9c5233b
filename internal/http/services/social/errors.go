package social

import (
	"errors"
	"fmt"
)

// Failure codes surfaced to the login page via the error query parameter.
const (
	CodeProviderFailure = "provider_failure"
	CodeFinderFailure   = "finder_failure"
)

// ErrUnknownProvider is returned when the path names a provider that is not
// registered or not enabled.
var ErrUnknownProvider = errors.New("unknown provider")

// FlowError is a recoverable login-flow failure. The callback controller
// redirects these back to the login page; anything else is a server error.
type FlowError struct {
	Code string
	Err  error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// NewProviderFailure wraps a provider handshake failure.
func NewProviderFailure(err error) *FlowError {
	return &FlowError{Code: CodeProviderFailure, Err: err}
}

// NewFinderFailure wraps a linked-user lookup failure.
func NewFinderFailure(err error) *FlowError {
	return &FlowError{Code: CodeFinderFailure, Err: err}
}

// AsFlowError extracts a FlowError from an error chain.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
