package rules

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/internal/record"
)

func TestNewSet(t *testing.T) {
	set, err := NewSet("test", []FieldRule{
		MustRegexRule("b", `b`, 2, false),
		MustRegexRule("a", `a`, 1, false),
		MustRegexRule("b", `bb`, 1, true),
	}, record.Schema{"a": {Type: record.TypeInteger}})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, set.Fields())
	assert.True(t, set.Required("b"))
	assert.False(t, set.Required("a"))
	assert.False(t, set.Required("z"))
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, record.TypeInteger, set.Schema().Field("a").Type)
}

func TestNewSet_Immutable(t *testing.T) {
	in := []FieldRule{NewKeywordRule("a", []string{"x"}, ValueAny, 1, false)}
	schema := record.Schema{"a": {Type: record.TypeString}}
	set, err := NewSet("test", in, schema)
	require.NoError(t, err)

	in[0].Pattern.Keywords[0] = "changed"
	schema["a"] = record.FieldSchema{Type: record.TypeNumber}
	out := set.Rules()
	out[0].Pattern.Keywords[0] = "also changed"

	assert.Equal(t, "x", set.Rules()[0].Pattern.Keywords[0])
	assert.Equal(t, record.TypeString, set.Schema().Field("a").Type)
}

func TestNewSet_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rules []FieldRule
		index int
	}{
		{"empty field", []FieldRule{{Pattern: Pattern{Kind: KindRegex, Regex: regexp.MustCompile("a")}}}, 0},
		{"nil regex", []FieldRule{MustRegexRule("a", "a", 1, false), {Field: "b", Pattern: Pattern{Kind: KindRegex}}}, 1},
		{"no keywords", []FieldRule{{Field: "a", Pattern: Pattern{Kind: KindKeyword}}}, 0},
		{"blank keyword", []FieldRule{NewKeywordRule("a", []string{" "}, ValueAny, 1, false)}, 0},
		{"unknown value kind", []FieldRule{NewKeywordRule("a", []string{"x"}, "colour", 1, false)}, 0},
		{"negative width", []FieldRule{NewPositionalRule("a", Position{Width: -1}, 1, false)}, 0},
		{"unknown kind", []FieldRule{{Field: "a", Pattern: Pattern{Kind: "fuzzy"}}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet("test", tt.rules, nil)
			require.ErrorIs(t, err, ErrInvalidRuleSet)

			var ruleErr *RuleError
			require.ErrorAs(t, err, &ruleErr)
			assert.Equal(t, tt.index, ruleErr.Index)
		})
	}

	_, err := NewSet("test", []FieldRule{MustRegexRule("a", "a", 1, false)}, record.Schema{"a": {Type: "money"}})
	require.ErrorIs(t, err, ErrInvalidRuleSet)
}

func TestNewRegexRule(t *testing.T) {
	_, err := NewRegexRule("a", `(`, 1, false)
	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, -1, ruleErr.Index)
	assert.NotContains(t, ruleErr.Error(), "rule -1")

	assert.Panics(t, func() { MustRegexRule("a", `(`, 1, false) })
}

func TestFieldRule_String(t *testing.T) {
	assert.Equal(t, `a/regex(\d+)#3`, MustRegexRule("a", `\d+`, 3, false).String())
	assert.Equal(t, "b/keyword(x|y z)#1", NewKeywordRule("b", []string{"x", "y z"}, ValueAny, 1, false).String())
	assert.Equal(t, "c/position(-1,2,0)#9", NewPositionalRule("c", Position{Line: -1, Offset: 2}, 9, false).String())
}
