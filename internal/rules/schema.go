package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed ruleset.schema.json
var rulesetSchema []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func documentSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("ruleset.schema.json", bytes.NewReader(rulesetSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("ruleset.schema.json")
	})
	return compiledSchema, compileErr
}

// validateDocument checks YAML data against the rule set JSON schema. The
// YAML is round-tripped through JSON so the validator sees plain JSON values.
func validateDocument(data []byte) error {
	schema, err := documentSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rule set does not match schema: %w", err)
	}
	return nil
}
