package models

// Candidate is a tentative match of a field produced by one rule.
type Candidate struct {
	Field        string  `json:"field"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	Span         Span    `json:"span"`
	RulePriority int     `json:"rule_priority"`

	// RuleIndex is the position of the producing rule in its rule set and breaks priority ties.
	RuleIndex int `json:"rule_index"`
}

// ResolvedField is the single winning candidate for a field.
type ResolvedField struct {
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Source     Candidate `json:"source"`
}

// WarningKind names a data-quality issue found during extraction.
type WarningKind string

const (
	MissingRequiredField WarningKind = "missing_required_field"
	AmbiguousMatch       WarningKind = "ambiguous_match"
	TypeCoercionFailed   WarningKind = "type_coercion_failed"
	LowConfidenceField   WarningKind = "low_confidence_field"
)

// Severity orders warning kinds for review; higher is more severe.
func (k WarningKind) Severity() int {
	switch k {
	case MissingRequiredField:
		return 4
	case AmbiguousMatch:
		return 3
	case TypeCoercionFailed:
		return 2
	case LowConfidenceField:
		return 1
	default:
		return 0
	}
}

// Warning is a non-fatal issue attached to an extraction record.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Field  string      `json:"field,omitempty"`
	Detail string      `json:"detail"`
}
