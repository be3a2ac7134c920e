package record

import "fmt"

// FieldType is the target type of a field's coercion.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeDate    FieldType = "date"
)

// DefaultDateLayouts are tried in order when a date field declares no layouts.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// FieldSchema describes how one field is coerced and weighted.
type FieldSchema struct {
	Type FieldType `json:"type" yaml:"type"`

	// Layouts are Go time layouts for TypeDate, tried in order.
	Layouts []string `json:"layouts,omitempty" yaml:"layouts,omitempty"`

	// Weight scales the field in the overall confidence. Zero means 1.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Validate checks the field schema for unknown types and negative weights.
func (f FieldSchema) Validate() error {
	switch f.Type {
	case "", TypeString, TypeNumber, TypeInteger, TypeDate:
	default:
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	if f.Weight < 0 {
		return fmt.Errorf("weight must not be negative, got %g", f.Weight)
	}
	if len(f.Layouts) > 0 && f.Type != TypeDate {
		return fmt.Errorf("layouts are only valid for date fields")
	}
	return nil
}

func (f FieldSchema) weight() float64 {
	if f.Weight == 0 {
		return 1
	}
	return f.Weight
}

func (f FieldSchema) fieldType() FieldType {
	if f.Type == "" {
		return TypeString
	}
	return f.Type
}

func (f FieldSchema) layouts() []string {
	if len(f.Layouts) == 0 {
		return DefaultDateLayouts
	}
	return f.Layouts
}

// Schema maps field names to their coercion. Fields without an entry are strings.
type Schema map[string]FieldSchema

// Field returns the schema for name, defaulting to a string field.
func (s Schema) Field(name string) FieldSchema {
	if fs, ok := s[name]; ok {
		return fs
	}
	return FieldSchema{Type: TypeString}
}

// Clone returns a deep copy.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		v.Layouts = append([]string(nil), v.Layouts...)
		out[k] = v
	}
	return out
}
