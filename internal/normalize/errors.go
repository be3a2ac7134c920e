package normalize

import "errors"

// ErrEmptyInput is returned when the OCR engine delivered no spans at all.
// Callers decide whether that is a user-facing error or a "no document detected" state.
var ErrEmptyInput = errors.New("empty OCR input: no spans to extract from")
