package rules

import (
	"errors"
	"fmt"
)

// ErrInvalidRuleSet is returned when a rule set cannot be loaded or validated.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// ErrUnknownPreset is returned when a named preset does not exist.
var ErrUnknownPreset = errors.New("unknown rule preset")

// RuleError describes a single bad rule.
type RuleError struct {
	Field  string
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("rule %d (field %q): %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// RuleSetError wraps rule set failures with the operation and set name.
type RuleSetError struct {
	// Op is the operation that failed (e.g., "Load", "NewSet").
	Op string

	// Set is the rule set name or path.
	Set string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RuleSetError) Error() string {
	if e.Set != "" {
		return fmt.Sprintf("rules: %s %s: %v", e.Op, e.Set, e.Err)
	}
	return fmt.Sprintf("rules: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleSetError) Unwrap() error {
	return e.Err
}

// Is makes every RuleSetError match ErrInvalidRuleSet as well as its cause.
func (e *RuleSetError) Is(target error) bool {
	return target == ErrInvalidRuleSet || errors.Is(e.Err, target)
}

// WrapRuleSetError wraps err unless it already is a RuleSetError.
func WrapRuleSetError(op string, err error, set string) error {
	if err == nil {
		return nil
	}
	var rsErr *RuleSetError
	if errors.As(err, &rsErr) {
		return err
	}
	return &RuleSetError{Op: op, Set: set, Err: err}
}
