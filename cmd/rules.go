package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docscan/internal/logger"
	"docscan/internal/record"
	"docscan/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [preset or file]",
	Short: "List built-in rule presets or validate a rule set",
	Long: `Without an argument, list the built-in rule presets.

With a preset name or a YAML file, load and validate the rule set and print
its fields with their type, weight and rules. A file that fails validation
is reported with the offending field and rule index.`,
	Example: `  # List presets
  docscan rules

  # Validate a custom rule file
  docscan rules ./receipt.yaml

  # Print the compiled rule set as JSON
  docscan rules form --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

// RuleSetOutput is the JSON description of a rule set.
type RuleSetOutput struct {
	Name   string        `json:"name"`
	Fields []FieldOutput `json:"fields"`
}

// FieldOutput describes one field of a rule set.
type FieldOutput struct {
	Name     string           `json:"name"`
	Type     record.FieldType `json:"type"`
	Weight   float64          `json:"weight,omitempty"`
	Required bool             `json:"required"`
	Rules    []string         `json:"rules"`
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRules(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("rules")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 0 {
		if jsonOutput {
			return writeJSON(rules.Presets(), "", log)
		}
		fmt.Println("Built-in rule presets:")
		for _, name := range rules.Presets() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	set, err := rules.LoadNamed(args[0])
	if err != nil {
		log.Error().Err(err).Str("rules", args[0]).Msg("Rule set validation failed")
		return fmt.Errorf("invalid rule set %q: %w", args[0], err)
	}

	out := describeRuleSet(set)
	log.Info().
		Str("rule_set", out.Name).
		Int("fields", len(out.Fields)).
		Int("rules", set.Len()).
		Msg("Rule set is valid")

	if jsonOutput {
		return writeJSON(out, "", log)
	}

	fmt.Printf("Rule set: %s (%d fields, %d rules)\n\n", out.Name, len(out.Fields), set.Len())
	for _, f := range out.Fields {
		required := ""
		if f.Required {
			required = ", required"
		}
		fmt.Printf("%s (%s%s)\n", f.Name, f.Type, required)
		fmt.Printf("  %s\n", strings.Join(f.Rules, "\n  "))
	}
	return nil
}

func describeRuleSet(set *rules.Set) RuleSetOutput {
	schema := set.Schema()
	byField := make(map[string][]string)
	for _, r := range set.Rules() {
		byField[r.Field] = append(byField[r.Field], r.String())
	}

	out := RuleSetOutput{Name: set.Name()}
	for _, name := range set.Fields() {
		fs := schema.Field(name)
		if fs.Type == "" {
			fs.Type = record.TypeString
		}
		out.Fields = append(out.Fields, FieldOutput{
			Name:     name,
			Type:     fs.Type,
			Weight:   fs.Weight,
			Required: set.Required(name),
			Rules:    byField[name],
		})
	}
	return out
}
