package models

import (
	"errors"
	"fmt"
)

// Error codes used in outcomes, summaries and internal error handling.
const (
	// ErrCodeInit means the browser or driver could not be started.
	ErrCodeInit = "INIT_FAILED"

	// ErrCodeNavigation means the workspace page failed to load.
	ErrCodeNavigation = "NAVIGATION_FAILED"

	// ErrCodeStageNotFound means an export stage's affordance never appeared.
	ErrCodeStageNotFound = "STAGE_NOT_FOUND"

	// ErrCodeUnexpected covers any other fault inside a single item's export.
	ErrCodeUnexpected = "UNEXPECTED"

	// ErrCodeFatalRun covers faults that escape the per-item boundary.
	ErrCodeFatalRun = "FATAL_RUN"

	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// ErrAffordanceNotFound is returned by a page when a bounded wait for an
// interactive element expires without a match.
var ErrAffordanceNotFound = errors.New("affordance not found")

// RunError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type RunError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(code, message string, err error) *RunError {
	return &RunError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first RunError in err's chain, or
// ErrCodeUnexpected when there is none.
func CodeOf(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrCodeUnexpected
}
