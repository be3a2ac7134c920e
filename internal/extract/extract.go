// Package extract runs the field extraction pipeline: normalize, match,
// resolve and build. It performs no I/O and keeps no state between calls.
package extract

import (
	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/internal/normalize"
	"docscan/internal/record"
	"docscan/internal/resolve"
	"docscan/internal/rules"
	"docscan/pkg/models"
)

// Options groups the tunables of every pipeline stage.
type Options struct {
	Normalize normalize.Options
	Resolve   resolve.Options
	Record    record.Options

	// RescanThreshold is the mean token confidence below which Analyze advises a re-scan.
	RescanThreshold float64
}

// DefaultOptions returns the defaults of every stage.
func DefaultOptions() Options {
	return Options{
		Normalize:       normalize.DefaultOptions(),
		Resolve:         resolve.DefaultOptions(),
		Record:          record.DefaultOptions(),
		RescanThreshold: normalize.DefaultRescanThreshold,
	}
}

// Extractor turns raw OCR spans into records for one rule set.
// It is read-only after construction and safe for concurrent use.
type Extractor struct {
	set        *rules.Set
	rules      []rules.FieldRule
	opts       Options
	normalizer *normalize.Normalizer
	matcher    *rules.Matcher
	resolver   *resolve.Resolver
	builder    *record.Builder
	log        zerolog.Logger
}

// NewExtractor creates an extractor for set. Records use the set's field order
// as their columns unless opts.Record.Columns is given.
func NewExtractor(set *rules.Set, opts Options) *Extractor {
	if len(opts.Record.Columns) == 0 {
		opts.Record.Columns = set.Fields()
	}
	return &Extractor{
		set:        set,
		rules:      set.Rules(),
		opts:       opts,
		normalizer: normalize.NewNormalizer(opts.Normalize),
		matcher:    rules.NewMatcher(),
		resolver:   resolve.NewResolver(opts.Resolve),
		builder:    record.NewBuilder(set.Schema(), opts.Record),
		log:        logger.WithComponent("extract"),
	}
}

// Set returns the rule set the extractor applies.
func (e *Extractor) Set() *rules.Set { return e.set }

// Builder returns the record builder, for applying human corrections.
func (e *Extractor) Builder() *record.Builder { return e.builder }

// Extract produces a record from raw spans. It fails only when raw is empty;
// every data-quality problem becomes a warning on the record.
func (e *Extractor) Extract(raw []models.RawSpan) (record.Record, error) {
	a, err := e.Analyze(raw)
	if err != nil {
		return record.Record{}, err
	}
	return a.Record, nil
}

// Quality summarizes the token stream an extraction ran on.
type Quality struct {
	Tokens         int                       `json:"tokens"`
	MeanConfidence float64                   `json:"mean_confidence"`
	NeedsRescan    bool                      `json:"needs_rescan"`
	Sources        map[models.SourceKind]int `json:"sources"`
}

// Analysis is a record together with the quality of its input.
type Analysis struct {
	Record     record.Record `json:"record"`
	Quality    Quality       `json:"quality"`
	Candidates int           `json:"candidates"`
}

// Analyze is Extract plus the input quality report.
func (e *Extractor) Analyze(raw []models.RawSpan) (Analysis, error) {
	tokens, err := e.normalizer.Normalize(raw)
	if err != nil {
		return Analysis{}, WrapExtractionError("Normalize", err, "")
	}

	candidates := e.matcher.Match(tokens, e.rules)
	resolved := e.resolver.Resolve(candidates, e.set)
	rec := e.builder.Build(resolved.Fields, resolved.Warnings)

	q := Quality{
		Tokens:         len(tokens),
		MeanConfidence: normalize.MeanConfidence(tokens),
		NeedsRescan:    normalize.NeedsRescan(tokens, e.opts.RescanThreshold),
		Sources:        normalize.CountBySource(tokens),
	}

	e.log.Debug().
		Str("rule_set", e.set.Name()).
		Int("spans", len(raw)).
		Int("tokens", len(tokens)).
		Int("candidates", len(candidates)).
		Int("fields", len(rec.FieldNames())).
		Int("warnings", len(rec.Warnings())).
		Float64("overall_confidence", rec.OverallConfidence()).
		Msg("Extraction completed")

	return Analysis{Record: rec, Quality: q, Candidates: len(candidates)}, nil
}

// Extract runs a one-off extraction with default options. Rule validation
// errors surface here; for repeated use build a rules.Set and an Extractor once.
func Extract(raw []models.RawSpan, fieldRules []rules.FieldRule, schema record.Schema) (record.Record, error) {
	set, err := rules.NewSet("inline", fieldRules, schema)
	if err != nil {
		return record.Record{}, WrapExtractionError("NewSet", err, "invalid rules")
	}
	return NewExtractor(set, DefaultOptions()).Extract(raw)
}
