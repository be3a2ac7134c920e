package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"docscan/internal/record"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// DefaultPriority is used for rules that do not set one.
const DefaultPriority = 100

// File is the on-disk form of a rule set.
type File struct {
	Name   string      `yaml:"name"`
	Fields []FieldFile `yaml:"fields"`
}

// FieldFile declares one field, its coercion and its rules.
type FieldFile struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type,omitempty"`
	Required bool       `yaml:"required,omitempty"`
	Weight   float64    `yaml:"weight,omitempty"`
	Layouts  []string   `yaml:"layouts,omitempty"`
	Rules    []RuleFile `yaml:"rules"`
}

// RuleFile is one pattern. Exactly one of Regex, Keywords and Position is set.
type RuleFile struct {
	Regex     string    `yaml:"regex,omitempty"`
	Multiline bool      `yaml:"multiline,omitempty"`
	Keywords  []string  `yaml:"keywords,omitempty"`
	Value     string    `yaml:"value,omitempty"`
	Position  *Position `yaml:"position,omitempty"`
	Match     string    `yaml:"match,omitempty"`
	Priority  *int      `yaml:"priority,omitempty"`
	Required  *bool     `yaml:"required,omitempty"`
}

// Presets lists the embedded rule set names.
func Presets() []string {
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Preset loads an embedded rule set by name.
func Preset(name string) (*Set, error) {
	data, err := presetFS.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return nil, WrapRuleSetError("Preset", fmt.Errorf("%w: %s (available: %s)",
			ErrUnknownPreset, name, strings.Join(Presets(), ", ")), name)
	}
	return Parse(data, name)
}

// Load reads a rule set from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapRuleSetError("Load", err, path)
	}
	return Parse(data, path)
}

// LoadNamed resolves nameOrPath as a preset first and as a file otherwise.
func LoadNamed(nameOrPath string) (*Set, error) {
	set, err := Preset(nameOrPath)
	if err == nil || !errors.Is(err, ErrUnknownPreset) {
		return set, err
	}
	if _, statErr := os.Stat(nameOrPath); statErr != nil {
		return nil, err
	}
	return Load(nameOrPath)
}

// Parse validates YAML data against the rule set schema and builds a Set.
// source names the data in errors and becomes the set name if the file has none.
func Parse(data []byte, source string) (*Set, error) {
	if err := validateDocument(data); err != nil {
		return nil, WrapRuleSetError("Parse", err, source)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, WrapRuleSetError("Parse", fmt.Errorf("decode yaml: %w", err), source)
	}
	if f.Name == "" {
		f.Name = source
	}

	set, err := f.Build()
	if err != nil {
		return nil, WrapRuleSetError("Parse", err, source)
	}
	return set, nil
}

// Build compiles the file's rules and schema into a Set.
func (f File) Build() (*Set, error) {
	var rules []FieldRule
	schema := make(record.Schema, len(f.Fields))
	for _, ff := range f.Fields {
		if _, dup := schema[ff.Name]; dup {
			return nil, &RuleError{Field: ff.Name, Index: -1, Reason: "field declared twice"}
		}
		schema[ff.Name] = record.FieldSchema{
			Type:    record.FieldType(ff.Type),
			Layouts: ff.Layouts,
			Weight:  ff.Weight,
		}
		for _, rf := range ff.Rules {
			r, err := rf.compile(ff)
			if err != nil {
				var ruleErr *RuleError
				if errors.As(err, &ruleErr) {
					ruleErr.Index = len(rules)
				}
				return nil, err
			}
			rules = append(rules, r)
		}
	}
	return NewSet(f.Name, rules, schema)
}

func (rf RuleFile) compile(ff FieldFile) (FieldRule, error) {
	r := FieldRule{Field: ff.Name, Priority: DefaultPriority, Required: ff.Required}
	if rf.Priority != nil {
		r.Priority = *rf.Priority
	}
	if rf.Required != nil {
		r.Required = *rf.Required
	}

	set := 0
	if rf.Regex != "" {
		set++
	}
	if len(rf.Keywords) > 0 {
		set++
	}
	if rf.Position != nil {
		set++
	}
	if set != 1 {
		return FieldRule{}, &RuleError{Field: ff.Name, Reason: "rule needs exactly one of regex, keywords or position"}
	}

	switch {
	case rf.Regex != "":
		re, err := regexp.Compile(rf.Regex)
		if err != nil {
			return FieldRule{}, &RuleError{Field: ff.Name, Reason: fmt.Sprintf("invalid regex %q: %v", rf.Regex, err)}
		}
		r.Pattern = Pattern{Kind: KindRegex, Regex: re, Multiline: rf.Multiline}
	case len(rf.Keywords) > 0:
		r.Pattern = Pattern{Kind: KindKeyword, Keywords: rf.Keywords, Value: ValueKind(rf.Value)}
	default:
		r.Pattern = Pattern{Kind: KindPositional, Position: *rf.Position, Value: ValueKind(rf.Value)}
	}

	if rf.Match != "" {
		if r.Pattern.Kind == KindRegex {
			return FieldRule{}, &RuleError{Field: ff.Name, Reason: "match is only valid for keyword and position rules"}
		}
		re, err := regexp.Compile(rf.Match)
		if err != nil {
			return FieldRule{}, &RuleError{Field: ff.Name, Reason: fmt.Sprintf("invalid match %q: %v", rf.Match, err)}
		}
		r.Pattern.Match = re
	}
	return r, nil
}
