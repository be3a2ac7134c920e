package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docscan/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a structured record from one document",
	Long: `Recognize a document with the selected OCR engine and extract the fields
defined by a rule set.

The default engine "spans" reads OCR output that was produced elsewhere, as a
JSON array of [text, confidence, line] tuples or {"text", "confidence",
"line", "style"} objects. The cloud engines send the file to Google Cloud:

  vision      - Google Cloud Vision document text detection
  documentai  - Google Document AI (reports handwriting per token)
  tesseract   - local Tesseract (binary built with -tags tesseract)

Rule sets are either a built-in preset name or a path to a YAML file.

Relevant environment variables:
  OCR_ENGINE, DOCSCAN_RULES, DOCSCAN_TIMEOUT
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID`,
	Example: `  # Extract invoice fields from pre-recognized spans
  docscan extract scan.json

  # Use Document AI and the form preset, with the full validation report
  docscan extract form.pdf --engine documentai --rules form --report

  # Use a custom rule file and write the result to a file
  docscan extract receipt.png --engine vision --rules ./receipt.yaml -o receipt.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().StringP("engine", "e", "", "OCR engine (default: $OCR_ENGINE or spans)")
	extractCmd.Flags().StringP("rules", "r", "", "Rule preset name or YAML file (default: $DOCSCAN_RULES or invoice)")
	extractCmd.Flags().Bool("report", false, "Include the validation report, review view and input quality")
	extractCmd.Flags().Duration("timeout", 0, "Processing timeout (default: $DOCSCAN_TIMEOUT or 2m)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	path := args[0]
	requestID := uuid.NewString()
	log := logger.WithDocument("extract", path, requestID)

	// Get flags
	outputPath, _ := cmd.Flags().GetString("output")
	engine, _ := cmd.Flags().GetString("engine")
	ruleSet, _ := cmd.Flags().GetString("rules")
	report, _ := cmd.Flags().GetBool("report")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if engine == "" {
		engine = cfg.Engine
	}
	if ruleSet == "" {
		ruleSet = cfg.Rules
	}
	if timeout <= 0 {
		timeout = cfg.Timeout
	}

	log.Info().
		Str("engine", engine).
		Str("rules", ruleSet).
		Dur("timeout", timeout).
		Msg("Starting extraction")

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	p, err := newPipeline(ctx, cfg, engine, ruleSet, log)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	out, analysis, err := p.process(ctx, path, requestID, report)
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		return handleProcessingError(err)
	}

	rec := analysis.Record
	log.Info().
		Int("fields", len(rec.FieldNames())).
		Int("warnings", len(rec.Warnings())).
		Float64("overall_confidence", rec.OverallConfidence()).
		Dur("duration", time.Since(start)).
		Msg("Extraction completed successfully")

	if analysis.Quality.NeedsRescan {
		log.Warn().
			Float64("mean_confidence", analysis.Quality.MeanConfidence).
			Float64("threshold", cfg.RescanThreshold).
			Msg("Input quality is low, consider rescanning the document")
	}

	if err := writeJSON(out, outputPath, log); err != nil {
		return err
	}

	if outputPath != "" {
		fmt.Printf("Record for %s written to %s (confidence %.1f%%, %d warnings)\n",
			out.File, outputPath, rec.OverallConfidence()*100, len(rec.Warnings()))
	}
	return nil
}
