package record

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

const (
	// DefaultLowConfidenceThreshold flags resolved fields below it.
	DefaultLowConfidenceThreshold = 0.5

	// DefaultMissingRequiredCeiling caps overall confidence while a required field is missing.
	DefaultMissingRequiredCeiling = 0.5
)

// Options tunes record assembly.
type Options struct {
	LowConfidenceThreshold float64
	MissingRequiredCeiling float64

	// Columns fixes the tabular columns of every record, normally the rule
	// set's field order. Empty means the resolved fields of each record.
	Columns []string
}

// DefaultOptions returns the builder defaults.
func DefaultOptions() Options {
	return Options{
		LowConfidenceThreshold: DefaultLowConfidenceThreshold,
		MissingRequiredCeiling: DefaultMissingRequiredCeiling,
	}
}

// Builder coerces resolved fields and computes record confidence.
// It holds only read-only configuration and is safe for concurrent use.
type Builder struct {
	schema  Schema
	opts    Options
	columns []string
	log     zerolog.Logger
}

// NewBuilder creates a builder for schema.
func NewBuilder(schema Schema, opts Options) *Builder {
	return &Builder{
		schema:  schema.Clone(),
		opts:    opts,
		columns: append([]string(nil), opts.Columns...),
		log:     logger.WithComponent("record"),
	}
}

// Build assembles a record from resolved fields (in rule order) and the
// warnings raised while resolving them.
func (b *Builder) Build(fields []models.ResolvedField, warnings []models.Warning) Record {
	rec := Record{
		values:    make(map[string]Value, len(fields)),
		resolved:  make(map[string]models.ResolvedField, len(fields)),
		corrected: map[string]bool{},
		columns:   b.columns,
		warnings:  append([]models.Warning(nil), warnings...),
	}

	for _, rf := range fields {
		if _, dup := rec.values[rf.Field]; dup {
			// A field resolves at most once; the first resolution stands.
			b.log.Warn().Str("field", rf.Field).Msg("Duplicate resolved field ignored")
			continue
		}
		value := b.coerce(&rec, rf.Field, rf.Value)
		rec.order = append(rec.order, rf.Field)
		rec.values[rf.Field] = value
		rec.resolved[rf.Field] = rf

		if rf.Confidence < b.opts.LowConfidenceThreshold {
			rec.warnings = append(rec.warnings, models.Warning{
				Kind:   models.LowConfidenceField,
				Field:  rf.Field,
				Detail: fmt.Sprintf("confidence %.2f is below %.2f; verify %q", rf.Confidence, b.opts.LowConfidenceThreshold, rf.Value),
			})
		}
	}

	rec.overall = b.overall(rec)

	b.log.Debug().
		Int("fields", len(rec.order)).
		Int("warnings", len(rec.warnings)).
		Float64("overall_confidence", rec.overall).
		Msg("Record built")

	return rec
}

// Correct returns a copy of rec with field set to a reviewer-entered raw value
// at confidence 1. Earlier warnings for the field are dropped; a coercion
// failure of the new value is reported again. rec itself is unchanged.
func (b *Builder) Correct(rec Record, field, raw string) (Record, error) {
	if _, known := rec.values[field]; !known {
		if _, inSchema := b.schema[field]; !inSchema && len(rec.WarningsFor(field)) == 0 {
			return Record{}, fmt.Errorf("correct %q: %w", field, ErrUnknownField)
		}
	}

	out := Record{
		values:    make(map[string]Value, len(rec.values)+1),
		resolved:  make(map[string]models.ResolvedField, len(rec.resolved)+1),
		corrected: make(map[string]bool, len(rec.corrected)+1),
		columns:   rec.columns,
	}
	for _, w := range rec.warnings {
		if w.Field != field {
			out.warnings = append(out.warnings, w)
		}
	}
	for k, v := range rec.values {
		out.values[k] = v
	}
	for k, v := range rec.resolved {
		out.resolved[k] = v
	}
	for k, v := range rec.corrected {
		out.corrected[k] = v
	}
	out.order = append([]string(nil), rec.order...)
	if _, known := rec.values[field]; !known {
		out.order = append(out.order, field)
	}

	out.values[field] = b.coerce(&out, field, raw)
	out.resolved[field] = models.ResolvedField{Field: field, Value: raw, Confidence: 1}
	out.corrected[field] = true
	out.overall = b.overall(out)

	b.log.Info().
		Str("field", field).
		Float64("overall_confidence", out.overall).
		Msg("Field corrected by reviewer")

	return out, nil
}

func (b *Builder) coerce(rec *Record, field, raw string) Value {
	value, err := Coerce(b.schema.Field(field), raw)
	if err != nil {
		rec.warnings = append(rec.warnings, models.Warning{
			Kind:   models.TypeCoercionFailed,
			Field:  field,
			Detail: fmt.Sprintf("kept raw value: %v", err),
		})
		b.log.Debug().Err(err).Str("field", field).Msg("Coercion failed, raw value kept")
	}
	return value
}

func (b *Builder) overall(rec Record) float64 {
	var sum, weights float64
	for _, name := range rec.order {
		w := b.schema.Field(name).weight()
		sum += w * rec.resolved[name].Confidence
		weights += w
	}
	if weights == 0 {
		return 0
	}
	overall := sum / weights
	if rec.missingRequired() {
		overall = math.Min(overall, b.opts.MissingRequiredCeiling)
	}
	return overall
}
