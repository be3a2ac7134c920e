// Package resolve selects one winning candidate per field and records the
// ambiguity and absence it finds along the way.
package resolve

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/internal/rules"
	"docscan/pkg/models"
)

// DefaultTieBand is the confidence window within which a runner-up makes a match ambiguous.
const DefaultTieBand = 0.05

// bandEpsilon absorbs float64 rounding so that two-decimal confidences exactly
// one band apart (0.60 and 0.55) stay outside it.
const bandEpsilon = 1e-9

// Options configures a Resolver.
type Options struct {
	// TieBand is compared with a strict less-than against the confidence difference.
	TieBand float64
}

// DefaultOptions returns the default resolver options.
func DefaultOptions() Options {
	return Options{TieBand: DefaultTieBand}
}

// Result is the resolver output: fields in rule-set order plus warnings.
type Result struct {
	Fields   []models.ResolvedField
	Warnings []models.Warning
}

// Resolver picks winners. It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	opts Options
	log  zerolog.Logger
}

// NewResolver creates a resolver. A negative tie band is treated as zero.
func NewResolver(opts Options) *Resolver {
	if opts.TieBand < 0 || math.IsNaN(opts.TieBand) {
		opts.TieBand = 0
	}
	return &Resolver{opts: opts, log: logger.WithComponent("resolver")}
}

// Resolve commits at most one candidate per field of set.
func (r *Resolver) Resolve(candidates []models.Candidate, set *rules.Set) Result {
	fields := set.Fields()
	byField := make(map[string][]models.Candidate, len(fields))
	for _, c := range candidates {
		byField[c.Field] = append(byField[c.Field], c)
	}
	for _, f := range fields {
		sortCandidates(byField[f])
	}

	// next[f] indexes the current winner of f; len(byField[f]) means none left.
	next := make(map[string]int, len(fields))
	discarded := 0
	for {
		loser, ok := r.overlapLoser(fields, byField, next, set)
		if !ok {
			break
		}
		next[loser]++
		discarded++
	}

	winners := make(map[string]models.Candidate, len(fields))
	for _, f := range fields {
		if c, ok := current(byField, next, f); ok {
			winners[f] = c
		}
	}

	var res Result
	for _, f := range fields {
		list := byField[f]
		idx := next[f]
		if idx >= len(list) {
			if set.Required(f) {
				res.Warnings = append(res.Warnings, models.Warning{
					Kind:   models.MissingRequiredField,
					Field:  f,
					Detail: missingDetail(len(list)),
				})
			}
			continue
		}

		winner := list[idx]
		res.Fields = append(res.Fields, models.ResolvedField{
			Field:      f,
			Value:      winner.Text,
			Confidence: winner.Confidence,
			Source:     winner,
		})
		if runnerUp, ok := r.closestRival(f, winner, list[idx+1:], winners); ok {
			res.Warnings = append(res.Warnings, models.Warning{
				Kind:  models.AmbiguousMatch,
				Field: f,
				Detail: fmt.Sprintf("kept %q (%.2f) over %q (%.2f) at tokens %d-%d",
					winner.Text, winner.Confidence, runnerUp.Text, runnerUp.Confidence,
					runnerUp.Span.Start, runnerUp.Span.End),
			})
		}
	}

	r.log.Debug().
		Int("candidates", len(candidates)).
		Int("resolved", len(res.Fields)).
		Int("discarded_overlaps", discarded).
		Int("warnings", len(res.Warnings)).
		Msg("Candidates resolved")
	return res
}

func missingDetail(had int) string {
	if had == 0 {
		return "no rule matched"
	}
	return fmt.Sprintf("all %d candidates were claimed by other fields", had)
}

// overlapLoser finds the first pair of different fields whose current winners
// share a token and returns the field that gives way.
func (r *Resolver) overlapLoser(fields []string, byField map[string][]models.Candidate, next map[string]int, set *rules.Set) (string, bool) {
	for i, a := range fields {
		ca, ok := current(byField, next, a)
		if !ok {
			continue
		}
		for _, b := range fields[i+1:] {
			cb, ok := current(byField, next, b)
			if !ok || !ca.Span.Overlaps(cb.Span) {
				continue
			}
			if wins(ca, cb, set.Required(a), set.Required(b)) {
				r.log.Trace().Str("winner", a).Str("loser", b).Msg("Overlapping span claimed")
				return b, true
			}
			r.log.Trace().Str("winner", b).Str("loser", a).Msg("Overlapping span claimed")
			return a, true
		}
	}
	return "", false
}

func current(byField map[string][]models.Candidate, next map[string]int, field string) (models.Candidate, bool) {
	list := byField[field]
	idx := next[field]
	if idx >= len(list) {
		return models.Candidate{}, false
	}
	return list[idx], true
}

// wins orders candidates of different fields that claim the same tokens:
// precedence, then required, then confidence, then rule order.
func wins(a, b models.Candidate, aRequired, bRequired bool) bool {
	if a.RulePriority != b.RulePriority {
		return a.RulePriority < b.RulePriority
	}
	if aRequired != bRequired {
		return aRequired
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.RuleIndex <= b.RuleIndex
}

// closestRival returns the runner-up nearest in confidence to winner among
// candidates on a different span inside the tie band. A runner-up reading the
// same text from overlapping tokens (a label rule and a bare regex hitting one
// value) is the same evidence, not a rival. Neither is a runner-up on tokens
// another field has won.
func (r *Resolver) closestRival(field string, winner models.Candidate, rest []models.Candidate, winners map[string]models.Candidate) (models.Candidate, bool) {
	var best models.Candidate
	bestDiff := math.Inf(1)
	for _, c := range rest {
		if c.Span == winner.Span || (c.Text == winner.Text && c.Span.Overlaps(winner.Span)) {
			continue
		}
		if claimedElsewhere(field, c.Span, winners) {
			continue
		}
		diff := math.Abs(winner.Confidence - c.Confidence)
		if diff < r.opts.TieBand-bandEpsilon && diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best, !math.IsInf(bestDiff, 1)
}

func claimedElsewhere(field string, span models.Span, winners map[string]models.Candidate) bool {
	for f, w := range winners {
		if f != field && w.Span.Overlaps(span) {
			return true
		}
	}
	return false
}

// sortCandidates orders a field's candidates best first.
func sortCandidates(list []models.Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.RulePriority != b.RulePriority {
			return a.RulePriority < b.RulePriority
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.RuleIndex != b.RuleIndex {
			return a.RuleIndex < b.RuleIndex
		}
		return a.Span.Start < b.Span.Start
	})
}
