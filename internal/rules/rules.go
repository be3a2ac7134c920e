// Package rules holds declarative field-recognition rules and the matcher that
// applies them to a token stream.
//
// A rule is data: a field name, a tagged-variant pattern, a priority and a
// required flag. Lower priority numbers take precedence; equal priorities are
// ordered by position in the rule set. Rule sets are built once, at start-up,
// from YAML files or the embedded presets, and are read-only afterwards.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"docscan/internal/record"
)

// PatternKind tags the variant held by a Pattern.
type PatternKind string

const (
	KindRegex      PatternKind = "regex"
	KindKeyword    PatternKind = "keyword"
	KindPositional PatternKind = "positional"
)

// ValueKind constrains what a label's value may look like.
type ValueKind string

const (
	ValueAny     ValueKind = "any"
	ValueText    ValueKind = "text"
	ValueName    ValueKind = "name"
	ValuePhone   ValueKind = "phone"
	ValueEmail   ValueKind = "email"
	ValueDate    ValueKind = "date"
	ValueNumber  ValueKind = "number"
	ValueInteger ValueKind = "integer"
)

// Position addresses tokens by layout. Line is the ordinal of a non-empty line
// (negative counts from the last line), Offset the first token on it and Width
// the number of tokens (0 means to the end of the line).
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Offset int `json:"offset" yaml:"offset"`
	Width  int `json:"width" yaml:"width"`
}

// Pattern is a tagged variant; only the members for Kind are meaningful.
type Pattern struct {
	Kind PatternKind

	// Regex is the expression for KindRegex. A group named "value" (or else the
	// first group) selects the field value from the match.
	Regex *regexp.Regexp
	// Multiline lets a regex match across line breaks.
	Multiline bool

	// Keywords are label phrases for KindKeyword.
	Keywords []string
	// Value validates the text after a label.
	Value ValueKind

	// Position selects tokens for KindPositional.
	Position Position

	// Match optionally constrains keyword and positional values.
	Match *regexp.Regexp
}

// FieldRule recognizes one field.
type FieldRule struct {
	Field    string
	Pattern  Pattern
	Priority int
	Required bool
}

// String describes the rule for logs and warnings.
func (r FieldRule) String() string {
	switch r.Pattern.Kind {
	case KindRegex:
		return fmt.Sprintf("%s/regex(%s)#%d", r.Field, r.Pattern.Regex, r.Priority)
	case KindKeyword:
		return fmt.Sprintf("%s/keyword(%s)#%d", r.Field, strings.Join(r.Pattern.Keywords, "|"), r.Priority)
	case KindPositional:
		p := r.Pattern.Position
		return fmt.Sprintf("%s/position(%d,%d,%d)#%d", r.Field, p.Line, p.Offset, p.Width, r.Priority)
	default:
		return fmt.Sprintf("%s/%s#%d", r.Field, r.Pattern.Kind, r.Priority)
	}
}

// NewRegexRule compiles expr into a regex rule.
func NewRegexRule(field, expr string, priority int, required bool) (FieldRule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return FieldRule{}, &RuleError{Field: field, Index: -1, Reason: fmt.Sprintf("invalid regex %q: %v", expr, err)}
	}
	return FieldRule{
		Field:    field,
		Pattern:  Pattern{Kind: KindRegex, Regex: re},
		Priority: priority,
		Required: required,
	}, nil
}

// MustRegexRule is NewRegexRule for statically known expressions; it panics on a bad expression.
func MustRegexRule(field, expr string, priority int, required bool) FieldRule {
	r, err := NewRegexRule(field, expr, priority, required)
	if err != nil {
		panic(err)
	}
	return r
}

// NewKeywordRule builds a label+value rule.
func NewKeywordRule(field string, keywords []string, value ValueKind, priority int, required bool) FieldRule {
	return FieldRule{
		Field:    field,
		Pattern:  Pattern{Kind: KindKeyword, Keywords: append([]string(nil), keywords...), Value: value},
		Priority: priority,
		Required: required,
	}
}

// NewPositionalRule builds a layout rule.
func NewPositionalRule(field string, pos Position, priority int, required bool) FieldRule {
	return FieldRule{
		Field:    field,
		Pattern:  Pattern{Kind: KindPositional, Position: pos},
		Priority: priority,
		Required: required,
	}
}

// Set is a validated, immutable rule set together with its coercion schema.
// It is safe for concurrent use.
type Set struct {
	name     string
	rules    []FieldRule
	fields   []string
	required map[string]bool
	schema   record.Schema
}

// NewSet validates rules and freezes them into a Set. The field order is the
// order in which fields first appear in rules.
func NewSet(name string, rules []FieldRule, schema record.Schema) (*Set, error) {
	s := &Set{
		name:     name,
		rules:    make([]FieldRule, 0, len(rules)),
		required: make(map[string]bool),
		schema:   schema.Clone(),
	}
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			var ruleErr *RuleError
			if errors.As(err, &ruleErr) {
				ruleErr.Index = i
			}
			return nil, WrapRuleSetError("NewSet", err, name)
		}
		if _, seen := s.required[r.Field]; !seen {
			s.fields = append(s.fields, r.Field)
			s.required[r.Field] = false
		}
		if r.Required {
			s.required[r.Field] = true
		}
		s.rules = append(s.rules, cloneRule(r))
	}
	for field, fs := range s.schema {
		if err := fs.Validate(); err != nil {
			return nil, WrapRuleSetError("NewSet", &RuleError{Field: field, Index: -1, Reason: err.Error()}, name)
		}
	}
	return s, nil
}

// Name returns the rule set's name.
func (s *Set) Name() string { return s.name }

// Rules returns a copy of the rules in precedence-neutral file order.
func (s *Set) Rules() []FieldRule {
	out := make([]FieldRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = cloneRule(r)
	}
	return out
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Fields returns the field names in first-appearance order.
func (s *Set) Fields() []string { return append([]string(nil), s.fields...) }

// Required reports whether any rule for field is required.
func (s *Set) Required(field string) bool { return s.required[field] }

// Schema returns a copy of the coercion schema.
func (s *Set) Schema() record.Schema { return s.schema.Clone() }

func validateRule(r FieldRule) error {
	if strings.TrimSpace(r.Field) == "" {
		return &RuleError{Reason: "field name is empty"}
	}
	p := r.Pattern
	switch p.Kind {
	case KindRegex:
		if p.Regex == nil {
			return &RuleError{Field: r.Field, Reason: "regex rule without expression"}
		}
	case KindKeyword:
		if len(p.Keywords) == 0 {
			return &RuleError{Field: r.Field, Reason: "keyword rule without keywords"}
		}
		for _, kw := range p.Keywords {
			if len(strings.Fields(kw)) == 0 {
				return &RuleError{Field: r.Field, Reason: "blank keyword"}
			}
		}
		if !validValueKind(p.Value) {
			return &RuleError{Field: r.Field, Reason: fmt.Sprintf("unknown value kind %q", p.Value)}
		}
	case KindPositional:
		if p.Position.Offset < 0 || p.Position.Width < 0 {
			return &RuleError{Field: r.Field, Reason: "position offset and width must be non-negative"}
		}
	default:
		return &RuleError{Field: r.Field, Reason: fmt.Sprintf("unknown pattern kind %q", p.Kind)}
	}
	return nil
}

func validValueKind(k ValueKind) bool {
	switch k {
	case "", ValueAny, ValueText, ValueName, ValuePhone, ValueEmail, ValueDate, ValueNumber, ValueInteger:
		return true
	}
	return false
}

func cloneRule(r FieldRule) FieldRule {
	r.Pattern.Keywords = append([]string(nil), r.Pattern.Keywords...)
	return r
}
