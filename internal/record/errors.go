package record

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when correcting a field the schema and record do not know.
var ErrUnknownField = errors.New("unknown field")

// CoercionError reports a raw value that does not fit its field type.
type CoercionError struct {
	Type FieldType
	Raw  string
	Err  error
}

// Error implements the error interface.
func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %q to %s: %v", e.Raw, e.Type, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *CoercionError) Unwrap() error {
	return e.Err
}
