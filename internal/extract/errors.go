package extract

import (
	"errors"
	"fmt"

	"docscan/internal/normalize"
)

// ErrEmptyInput is returned when there are no raw spans to extract from.
// It is the only condition that aborts an extraction.
var ErrEmptyInput = normalize.ErrEmptyInput

// ExtractionError wraps a failed extraction with the stage and document it concerns.
type ExtractionError struct {
	// Op is the stage that failed (e.g., "Normalize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}

	return &ExtractionError{Op: op, Err: err, Details: details}
}
