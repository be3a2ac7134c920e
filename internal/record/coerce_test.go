package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_Number(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"250.00", "250.00"},
		{"$ 250.00", "250.00"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"7.303,08 €", "7303.08"},
		{"12,5", "12.5"},
		{"1,000", "1000"},
		{"1.000.000", "1000000"},
		{"-3.5", "-3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Coerce(FieldSchema{Type: TypeNumber}, tt.raw)
			require.NoError(t, err)
			assert.True(t, v.Coerced)
			assert.Equal(t, tt.want, v.String())
			_, ok := v.Number()
			assert.True(t, ok)
		})
	}
}

func TestCoerce_Failures(t *testing.T) {
	tests := []struct {
		name string
		fs   FieldSchema
		raw  string
	}{
		{"number letters", FieldSchema{Type: TypeNumber}, "abc"},
		{"integer decimal", FieldSchema{Type: TypeInteger}, "12.5"},
		{"date garbage", FieldSchema{Type: TypeDate}, "31.31.2024"},
		{"date custom layout", FieldSchema{Type: TypeDate, Layouts: []string{"2006-01-02"}}, "02.01.2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.fs, tt.raw)
			require.Error(t, err)

			var coerceErr *CoercionError
			require.ErrorAs(t, err, &coerceErr)
			assert.Equal(t, tt.raw, coerceErr.Raw)

			assert.False(t, v.Coerced)
			assert.Equal(t, tt.raw, v.Raw)
			assert.Equal(t, tt.raw, v.String())
			assert.Equal(t, tt.raw, v.Interface())
		})
	}
}

func TestCoerce_Date(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15.03.2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"5.3.2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15.03.2024,", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Coerce(FieldSchema{Type: TypeDate}, tt.raw)
			require.NoError(t, err)
			got, ok := v.Date()
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.want.Format("2006-01-02"), v.String())
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	num, err := Coerce(FieldSchema{Type: TypeNumber}, "250.00")
	require.NoError(t, err)
	b, err := num.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "250.00", string(b))

	in, err := Coerce(FieldSchema{Type: TypeInteger}, "42")
	require.NoError(t, err)
	b, err = in.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	b, err = StringValue("A&B <x>").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"A&B <x>"`, string(b))

	failed, _ := Coerce(FieldSchema{Type: TypeNumber}, "n/a")
	b, err = failed.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"n/a"`, string(b))
}

func TestFieldSchema_Validate(t *testing.T) {
	assert.NoError(t, FieldSchema{}.Validate())
	assert.NoError(t, FieldSchema{Type: TypeDate, Layouts: []string{"2006"}}.Validate())
	assert.Error(t, FieldSchema{Type: "money"}.Validate())
	assert.Error(t, FieldSchema{Weight: -1}.Validate())
	assert.Error(t, FieldSchema{Type: TypeNumber, Layouts: []string{"2006"}}.Validate())
}
