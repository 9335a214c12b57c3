package course

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means the model call failed or timed out.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrMalformedResponse means the model answered with something that is
	// not a well-formed course.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrPersistence means the course store failed to write or read.
	ErrPersistence = errors.New("course persistence failed")
	// ErrBudgetExceeded means the user has spent their token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrCourseNotFound is returned by stores for unknown ids.
	ErrCourseNotFound = errors.New("course not found")
)

// ParseError reports why a model response could not be parsed. Raw keeps the
// original text for diagnostics.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedResponse
}
