package record

import "docscan/pkg/models"

// ConfidenceLevel buckets a confidence for display.
type ConfidenceLevel string

const (
	LevelHigh    ConfidenceLevel = "high"
	LevelMedium  ConfidenceLevel = "medium"
	LevelLow     ConfidenceLevel = "low"
	LevelMissing ConfidenceLevel = "missing"
)

// LevelFor buckets c: high from 0.8, medium from 0.6, low below.
func LevelFor(c float64) ConfidenceLevel {
	switch {
	case c >= 0.8:
		return LevelHigh
	case c >= 0.6:
		return LevelMedium
	default:
		return LevelLow
	}
}

// FieldReview is one row of the human confirmation view.
type FieldReview struct {
	Field      string           `json:"field"`
	Value      string           `json:"value"`
	Confidence float64          `json:"confidence"`
	Level      ConfidenceLevel  `json:"level"`
	Corrected  bool             `json:"corrected,omitempty"`
	Warnings   []models.Warning `json:"warnings,omitempty"`
}

// Review lists resolved fields in rule order followed by missing required
// fields, each with the warnings that address it.
func (r Record) Review() []FieldReview {
	out := make([]FieldReview, 0, len(r.order))
	for _, name := range r.order {
		rf := r.resolved[name]
		out = append(out, FieldReview{
			Field:      name,
			Value:      r.values[name].String(),
			Confidence: rf.Confidence,
			Level:      LevelFor(rf.Confidence),
			Corrected:  r.corrected[name],
			Warnings:   r.WarningsFor(name),
		})
	}
	for _, w := range r.warnings {
		if w.Kind != models.MissingRequiredField || r.Has(w.Field) {
			continue
		}
		out = append(out, FieldReview{
			Field:    w.Field,
			Level:    LevelMissing,
			Warnings: r.WarningsFor(w.Field),
		})
	}
	return out
}
