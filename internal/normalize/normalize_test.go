package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalize_Empty(t *testing.T) {
	_, err := NewNormalizer(DefaultOptions()).Normalize(nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = NewNormalizer(DefaultOptions()).Normalize([]models.RawSpan{})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestNormalize_ConfidenceScale(t *testing.T) {
	tests := []struct {
		name string
		raw  []models.RawSpan
		want []float64
	}{
		{
			name: "unit scale kept",
			raw:  []models.RawSpan{{Text: "a", Confidence: 0.95}, {Text: "b", Confidence: 0.4}},
			want: []float64{0.95, 0.4},
		},
		{
			name: "percent scale detected",
			raw:  []models.RawSpan{{Text: "a", Confidence: 95}, {Text: "b", Confidence: 0.5}},
			want: []float64{0.95, 0.005},
		},
		{
			name: "clamped above scale",
			raw:  []models.RawSpan{{Text: "a", Confidence: 180}},
			want: []float64{1},
		},
		{
			name: "nan and negative dropped as zero",
			raw: []models.RawSpan{
				{Text: "a", Confidence: math.NaN()},
				{Text: "b", Confidence: -3},
				{Text: "c", Confidence: 0.7},
			},
			want: []float64{0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewNormalizer(DefaultOptions()).Normalize(tt.raw)
			require.NoError(t, err)
			require.Len(t, tokens, len(tt.want))
			for i, want := range tt.want {
				assert.InDelta(t, want, tokens[i].Confidence, 1e-9)
			}
		})
	}
}

func TestNormalize_Segmentation(t *testing.T) {
	raw := []models.RawSpan{
		{Text: "  Student  Name: ", Confidence: 0.9, Line: 0},
		{Text: "John\u200bny", Confidence: 0.7, Line: 0},
		{Text: "   ", Confidence: 0.9, Line: 0},
		{Text: "Ｔｏｔａｌ", Confidence: 0.8, Line: 2},
	}

	tokens, err := NewNormalizer(DefaultOptions()).Normalize(raw)
	require.NoError(t, err)

	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"Student", "Name:", "Johnny", "Total"}, texts)

	assert.Equal(t, models.Position{Line: 0, Offset: 0}, tokens[0].Position)
	assert.Equal(t, models.Position{Line: 0, Offset: 1}, tokens[1].Position)
	assert.Equal(t, models.Position{Line: 0, Offset: 2}, tokens[2].Position)
	assert.Equal(t, models.Position{Line: 2, Offset: 0}, tokens[3].Position)
	assert.Equal(t, 0.9, tokens[1].Confidence, "segmented words inherit span confidence")
}

func TestNormalize_AllDroppedIsNotAnError(t *testing.T) {
	tokens, err := NewNormalizer(DefaultOptions()).Normalize([]models.RawSpan{{Text: "Total:", Confidence: 0}})
	require.NoError(t, err)
	assert.Empty(t, tokens)

	opts := DefaultOptions()
	opts.KeepZeroConfidence = true
	tokens, err = NewNormalizer(opts).Normalize([]models.RawSpan{{Text: "Total:", Confidence: 0}})
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestNormalize_DecreasingLineIsPinned(t *testing.T) {
	raw := []models.RawSpan{
		{Text: "a", Confidence: 0.9, Line: 3},
		{Text: "b", Confidence: 0.9, Line: 1},
		{Text: "c", Confidence: 0.9, Line: 4},
	}
	tokens, err := NewNormalizer(DefaultOptions()).Normalize(raw)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, models.Position{Line: 3, Offset: 1}, tokens[1].Position)
	assert.Equal(t, models.Position{Line: 4, Offset: 0}, tokens[2].Position)
}

func TestNormalize_Classify(t *testing.T) {
	tests := []struct {
		name string
		span models.RawSpan
		want models.SourceKind
	}{
		{"no signal", models.RawSpan{Text: "x", Confidence: 0.3}, models.SourceUnknown},
		{"engine hint handwritten", models.RawSpan{Text: "x", Confidence: 0.99, Style: models.SourceHandwritten}, models.SourceHandwritten},
		{"engine hint printed", models.RawSpan{Text: "x", Confidence: 0.2, Style: models.SourcePrinted}, models.SourcePrinted},
		{"irregular and low", models.RawSpan{Text: "x", Confidence: 0.4, Irregular: boolPtr(true)}, models.SourceHandwritten},
		{"irregular but confident", models.RawSpan{Text: "x", Confidence: 0.9, Irregular: boolPtr(true)}, models.SourceUnknown},
		{"regular and confident", models.RawSpan{Text: "x", Confidence: 0.9, Irregular: boolPtr(false)}, models.SourcePrinted},
		{"regular but low", models.RawSpan{Text: "x", Confidence: 0.4, Irregular: boolPtr(false)}, models.SourceUnknown},
	}

	n := NewNormalizer(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := n.Normalize([]models.RawSpan{tt.span})
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.want, tokens[0].Source)
		})
	}
}

func TestQualityGate(t *testing.T) {
	tokens := []models.Token{
		{Text: "a", Confidence: 0.9, Source: models.SourcePrinted},
		{Text: "b", Confidence: 0.2, Source: models.SourceHandwritten},
	}
	assert.InDelta(t, 0.55, MeanConfidence(tokens), 1e-9)
	assert.True(t, NeedsRescan(tokens, DefaultRescanThreshold))
	assert.False(t, NeedsRescan(tokens, 0.5))
	assert.Zero(t, MeanConfidence(nil))
	assert.Equal(t, map[models.SourceKind]int{models.SourcePrinted: 1, models.SourceHandwritten: 1}, CountBySource(tokens))
}
