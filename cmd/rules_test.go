package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/internal/record"
	"docscan/internal/rules"
)

func TestDescribeRuleSet(t *testing.T) {
	set, err := rules.Preset("invoice")
	require.NoError(t, err)

	out := describeRuleSet(set)
	assert.Equal(t, "invoice", out.Name)
	require.NotEmpty(t, out.Fields)

	byName := make(map[string]FieldOutput)
	for _, f := range out.Fields {
		byName[f.Name] = f
		assert.NotEmpty(t, f.Rules, f.Name)
	}
	assert.True(t, byName["total_amount"].Required)
	assert.Equal(t, record.TypeNumber, byName["total_amount"].Type)
	assert.Equal(t, record.TypeString, byName["vendor_name"].Type)
	assert.False(t, byName["vendor_name"].Required)
}
