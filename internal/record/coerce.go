package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a field value after coercion. When coercion failed, Coerced is false
// and the value carries only the raw string.
type Value struct {
	Type    FieldType
	Raw     string
	Coerced bool

	number  decimal.Decimal
	integer int64
	date    time.Time
}

// StringValue wraps raw as a string field value.
func StringValue(raw string) Value {
	return Value{Type: TypeString, Raw: raw, Coerced: true}
}

// Number returns the decimal for a coerced number field.
func (v Value) Number() (decimal.Decimal, bool) {
	return v.number, v.Coerced && v.Type == TypeNumber
}

// Integer returns the integer for a coerced integer field.
func (v Value) Integer() (int64, bool) {
	return v.integer, v.Coerced && v.Type == TypeInteger
}

// Date returns the calendar date (UTC midnight) for a coerced date field.
func (v Value) Date() (time.Time, bool) {
	return v.date, v.Coerced && v.Type == TypeDate
}

// Interface returns the typed value: string, decimal.Decimal, int64 or time.Time.
// Uncoerced values return the raw string.
func (v Value) Interface() any {
	if !v.Coerced {
		return v.Raw
	}
	switch v.Type {
	case TypeNumber:
		return v.number
	case TypeInteger:
		return v.integer
	case TypeDate:
		return v.date
	default:
		return v.Raw
	}
}

// String renders the value for a tabular cell.
func (v Value) String() string {
	if !v.Coerced {
		return v.Raw
	}
	switch v.Type {
	case TypeNumber:
		return formatDecimal(v.number)
	case TypeInteger:
		return strconv.FormatInt(v.integer, 10)
	case TypeDate:
		return v.date.Format("2006-01-02")
	default:
		return v.Raw
	}
}

// MarshalJSON writes numbers as JSON numbers, dates as YYYY-MM-DD and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Coerced {
		switch v.Type {
		case TypeNumber:
			return []byte(formatDecimal(v.number)), nil
		case TypeInteger:
			return []byte(strconv.FormatInt(v.integer, 10)), nil
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.String()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Coerce converts raw into the schema's type. On failure it returns the raw
// string value (Coerced=false) together with a *CoercionError.
func Coerce(fs FieldSchema, raw string) (Value, error) {
	typ := fs.fieldType()
	v := Value{Type: typ, Raw: raw}
	var err error

	switch typ {
	case TypeString:
		v.Coerced = true
		return v, nil
	case TypeNumber:
		v.number, err = parseNumber(raw)
	case TypeInteger:
		v.integer, err = parseInteger(raw)
	case TypeDate:
		v.date, err = parseDate(raw, fs.layouts())
	}
	if err != nil {
		return Value{Type: typ, Raw: raw}, &CoercionError{Type: typ, Raw: raw, Err: err}
	}
	v.Coerced = true
	return v, nil
}

// parseNumber handles both German (7.303,08) and English (7,303.08) separators
// and strips currency markers.
func parseNumber(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	for _, marker := range []string{" ", "€", "$", "£", "¥", "EUR", "USD", "GBP"} {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty number")
	}

	dots, commas := strings.Count(cleaned, "."), strings.Count(cleaned, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case commas == 1:
		parts := strings.Split(cleaned, ",")
		if len(parts[1]) <= 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = parts[0] + parts[1]
		}
	case commas > 1:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case dots > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unable to parse number %q (cleaned: %q)", raw, cleaned)
	}
	return d, nil
}

func parseInteger(raw string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse integer %q", raw)
	}
	return n, nil
}

func parseDate(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), ".,;")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", raw)
}

// formatDecimal keeps the scale the document printed, so 250.00 stays 250.00.
func formatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
