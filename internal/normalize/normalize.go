// Package normalize turns raw OCR spans into a clean, ordered token stream.
//
// Normalization is a pure transform:
//   - confidences are brought onto the 0-1 scale (a sequence with any value above 1 is read as 0-100)
//   - text is NFKC-folded, zero-width runes are removed and whitespace is collapsed
//   - multi-word spans are segmented into one token per word, inheriting the span's confidence
//   - empty and zero-confidence tokens are dropped
//   - each token is classified as printed, handwritten or unknown
package normalize

import (
	"math"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

// DefaultHandwrittenThreshold is the confidence below which an irregular glyph shape reads as handwriting.
const DefaultHandwrittenThreshold = 0.6

// Options controls normalization.
type Options struct {
	// HandwrittenThreshold separates low-confidence irregular glyphs (handwritten) from regular ones.
	HandwrittenThreshold float64

	// KeepZeroConfidence keeps tokens the engine scored at 0 instead of dropping them.
	KeepZeroConfidence bool
}

// DefaultOptions returns the options used by the extraction pipeline.
func DefaultOptions() Options {
	return Options{HandwrittenThreshold: DefaultHandwrittenThreshold}
}

// Normalizer converts raw spans to tokens. It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	opts Options
	log  zerolog.Logger
}

// NewNormalizer creates a normalizer with the given options.
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{
		opts: opts,
		log:  logger.WithComponent("normalize"),
	}
}

// Normalize cleans and segments raw spans into tokens in reading order.
// It fails only with ErrEmptyInput, when raw has no spans at all. Spans that clean
// down to nothing are dropped, so a non-empty input may still yield zero tokens.
func (n *Normalizer) Normalize(raw []models.RawSpan) ([]models.Token, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	scale := detectScale(raw)
	tokens := make([]models.Token, 0, len(raw))
	line, offset := raw[0].Line, 0
	var clamped, dropped int

	for i, span := range raw {
		spanLine := span.Line
		if spanLine < line {
			// The engine contract is non-decreasing lines; keep order and pin to the current line.
			spanLine = line
			clamped++
		}
		if spanLine != line {
			line, offset = spanLine, 0
		}

		conf := scaleConfidence(span.Confidence, scale)
		if conf == 0 && !n.opts.KeepZeroConfidence {
			dropped++
			continue
		}
		source := n.classify(span, conf)

		for _, word := range splitWords(cleanText(span.Text)) {
			tokens = append(tokens, models.Token{
				Text:       word,
				Confidence: conf,
				Position:   models.Position{Line: line, Offset: offset},
				Source:     source,
			})
			offset++
		}

		n.log.Trace().
			Int("span", i).
			Int("line", line).
			Float64("confidence", conf).
			Str("source", string(source)).
			Msg("Normalized span")
	}

	if clamped > 0 {
		n.log.Warn().
			Int("clamped", clamped).
			Msg("OCR spans arrived with decreasing line index; pinned to preceding line")
	}

	n.log.Debug().
		Int("spans", len(raw)).
		Int("tokens", len(tokens)).
		Int("dropped_zero_confidence", dropped).
		Float64("scale", scale).
		Msg("Token stream normalized")

	return tokens, nil
}

// classify decides printed vs handwritten from the engine hint or the glyph signal.
func (n *Normalizer) classify(span models.RawSpan, conf float64) models.SourceKind {
	switch span.Style {
	case models.SourcePrinted, models.SourceHandwritten:
		return span.Style
	}
	if span.Irregular == nil {
		return models.SourceUnknown
	}
	low := conf < n.opts.HandwrittenThreshold
	switch {
	case *span.Irregular && low:
		return models.SourceHandwritten
	case !*span.Irregular && !low:
		return models.SourcePrinted
	default:
		return models.SourceUnknown
	}
}

// detectScale returns 100 when any confidence in the sequence is above 1, else 1.
func detectScale(raw []models.RawSpan) float64 {
	for _, span := range raw {
		if span.Confidence > 1 {
			return 100
		}
	}
	return 1
}

func scaleConfidence(v, scale float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	v /= scale
	if v > 1 {
		return 1
	}
	return v
}

func cleanText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u200b', r == '\u200c', r == '\u200d', r == '\ufeff', r == '\u00ad':
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

func splitWords(s string) []string {
	return strings.Fields(s)
}
