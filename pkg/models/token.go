package models

import (
	"encoding/json"
	"fmt"
)

// SourceKind classifies how a token was produced on the page.
type SourceKind string

const (
	SourceUnknown     SourceKind = "unknown"
	SourcePrinted     SourceKind = "printed"
	SourceHandwritten SourceKind = "handwritten"
)

// RawSpan is one recognized text span as delivered by an OCR engine.
type RawSpan struct {
	// Text is the recognized text. It may contain several words.
	Text string `json:"text"`

	// Confidence is on the engine's own scale, either 0-1 or 0-100.
	Confidence float64 `json:"confidence"`

	// Line is the source line index. Engines emit it non-decreasing.
	Line int `json:"line"`

	// Style is an explicit printed/handwritten hint from the engine, if it has one.
	Style SourceKind `json:"style,omitempty"`

	// Irregular reports glyph-shape irregularity. Nil means the engine gave no signal.
	Irregular *bool `json:"irregular,omitempty"`
}

// UnmarshalJSON accepts both the object form and the tuple form ["text", confidence, line].
func (s *RawSpan) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) != 3 {
			return fmt.Errorf("raw span tuple must have 3 elements, got %d", len(tuple))
		}
		var out RawSpan
		if err := json.Unmarshal(tuple[0], &out.Text); err != nil {
			return fmt.Errorf("raw span text: %w", err)
		}
		if err := json.Unmarshal(tuple[1], &out.Confidence); err != nil {
			return fmt.Errorf("raw span confidence: %w", err)
		}
		if err := json.Unmarshal(tuple[2], &out.Line); err != nil {
			return fmt.Errorf("raw span line: %w", err)
		}
		*s = out
		return nil
	}

	type plain RawSpan
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = RawSpan(out)
	return nil
}

// Position locates a token: its line and its ordinal within that line.
type Position struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// Token is a cleaned, single-word unit of OCR output with confidence in [0,1].
// Tokens are values; a token slice is in reading order.
type Token struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Position   Position   `json:"position"`
	Source     SourceKind `json:"source"`
}

// Span is a half-open range [Start, End) of token indices.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens covered.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one token.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Within reports whether the span lies inside a sequence of n tokens.
func (s Span) Within(n int) bool {
	return s.Start >= 0 && s.End <= n && s.Start < s.End
}
