package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docscan/internal/config"
	"docscan/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute or loaded lazily before the first command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "docscan - structured field extraction from noisy OCR output",
	Long: `docscan turns OCR output into structured records.

Documents are recognized with one of the configured OCR engines, normalized,
matched against a rule set and resolved into one value per field. Every
record carries per-field confidences and a validation report that tells a
reviewer which fields need a second look.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appConfig != nil {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("docscan executed")

		fmt.Println("Welcome to docscan!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

// Execute runs the CLI. A nil cfg makes commands load the configuration
// from the environment themselves.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
