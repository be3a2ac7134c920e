// Package record assembles resolved fields into the typed extraction record
// handed to export and review collaborators.
//
// A Record is immutable: every accessor returns copies, and corrections produce
// a new Record. Coercion failures never drop a field; the raw string is kept and
// a type_coercion_failed warning is attached instead.
package record

import (
	"encoding/json"
	"sort"

	"docscan/pkg/models"
)

// Record is the structured result of one extraction.
type Record struct {
	order     []string
	values    map[string]Value
	resolved  map[string]models.ResolvedField
	corrected map[string]bool
	columns   []string
	overall   float64
	warnings  []models.Warning
}

// Fields returns a copy of the typed field values keyed by field name.
func (r Record) Fields() map[string]Value {
	out := make(map[string]Value, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Value returns one field's value.
func (r Record) Value(field string) (Value, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Has reports whether field was resolved.
func (r Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Confidence returns the confidence of a resolved field.
func (r Record) Confidence(field string) (float64, bool) {
	rf, ok := r.resolved[field]
	return rf.Confidence, ok
}

// Resolved returns the resolution details of a field, including its source candidate.
func (r Record) Resolved(field string) (models.ResolvedField, bool) {
	rf, ok := r.resolved[field]
	return rf, ok
}

// Corrected reports whether a field's value was entered by a reviewer.
func (r Record) Corrected(field string) bool {
	return r.corrected[field]
}

// FieldNames returns resolved field names in rule order.
func (r Record) FieldNames() []string {
	return append([]string(nil), r.order...)
}

// OverallConfidence is the weighted mean of resolved field confidences, capped
// when a required field is missing, and 0 when nothing resolved.
func (r Record) OverallConfidence() float64 {
	return r.overall
}

// Warnings returns the warnings in the order they were raised.
func (r Record) Warnings() []models.Warning {
	return append([]models.Warning(nil), r.warnings...)
}

// WarningsFor returns the warnings addressing field.
func (r Record) WarningsFor(field string) []models.Warning {
	var out []models.Warning
	for _, w := range r.warnings {
		if w.Field == field {
			out = append(out, w)
		}
	}
	return out
}

// Columns returns the tabular column names. Records built with fixed columns
// share them, so rows from one rule set line up; fields resolved outside those
// columns follow in rule order. Without fixed columns these are the resolved fields.
func (r Record) Columns() []string {
	out := append([]string(nil), r.columns...)
	known := make(map[string]bool, len(out))
	for _, c := range out {
		known[c] = true
	}
	for _, name := range r.order {
		if !known[name] {
			out = append(out, name)
		}
	}
	return out
}

// Row renders the record as one tabular row; missing fields are empty cells.
func (r Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		if v, ok := r.values[col]; ok {
			row[i] = v.String()
		}
	}
	return row
}

type fieldDetail struct {
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	Corrected  bool         `json:"corrected,omitempty"`
	Span       *models.Span `json:"span,omitempty"`
	Type       FieldType    `json:"type"`
	Coerced    bool         `json:"coerced"`
}

type recordJSON struct {
	Fields            map[string]Value       `json:"fields"`
	Details           map[string]fieldDetail `json:"details"`
	OverallConfidence float64                `json:"overall_confidence"`
	Warnings          []models.Warning       `json:"warnings"`
}

// MarshalJSON encodes the record deterministically; map keys are sorted by encoding/json.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Fields:            r.Fields(),
		Details:           make(map[string]fieldDetail, len(r.resolved)),
		OverallConfidence: r.overall,
		Warnings:          r.Warnings(),
	}
	if out.Warnings == nil {
		out.Warnings = []models.Warning{}
	}
	for name, rf := range r.resolved {
		v := r.values[name]
		d := fieldDetail{
			Value:      rf.Value,
			Confidence: rf.Confidence,
			Corrected:  r.corrected[name],
			Type:       v.Type,
			Coerced:    v.Coerced,
		}
		if !d.Corrected {
			span := rf.Source.Span
			d.Span = &span
		}
		out.Details[name] = d
	}
	return json.Marshal(out)
}

// Report returns the warnings ordered by severity for review: missing required
// fields first, then ambiguous matches, coercion failures and low confidence.
// Warnings of equal severity keep their original order.
func (r Record) Report() []models.Warning {
	out := r.Warnings()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kind.Severity() > out[j].Kind.Severity()
	})
	return out
}

// missingRequired reports whether any required field is missing.
func (r Record) missingRequired() bool {
	for _, w := range r.warnings {
		if w.Kind == models.MissingRequiredField {
			return true
		}
	}
	return false
}
