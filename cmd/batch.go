package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docscan/internal/logger"
)

var batchCmd = &cobra.Command{
	Use:   "batch [files or folders...]",
	Short: "Extract records from many documents in parallel",
	Long: `Process several documents with one engine and one rule set.

Folders are searched recursively for supported files (.json, .pdf, .png,
.jpg, .jpeg, .gif, .bmp, .webp, .tif, .tiff). Documents are processed by a
pool of parallel workers; a failing document is reported in the results and
does not stop the batch. Results keep the order of the discovered files.`,
	Example: `  # Process a folder of exported OCR spans
  docscan batch ./scans

  # Process PDFs with Document AI using 8 workers
  docscan batch ./forms --engine documentai --rules form --workers 8 -o results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// BatchResult represents the result of processing a single document
type BatchResult struct {
	Filename string          `json:"filename"`
	Status   string          `json:"status"` // "success", "warning", "error"
	Error    string          `json:"error,omitempty"`
	Document *DocumentOutput `json:"document,omitempty"`
}

// BatchOutput is the JSON written by the batch command.
type BatchOutput struct {
	Engine   string        `json:"engine"`
	RuleSet  string        `json:"rule_set"`
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Warnings int           `json:"warnings"`
	Errors   int           `json:"errors"`
	Results  []BatchResult `json:"results"`
}

var supportedExtensions = map[string]bool{
	".json": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	batchCmd.Flags().StringP("engine", "e", "", "OCR engine (default: $OCR_ENGINE or spans)")
	batchCmd.Flags().StringP("rules", "r", "", "Rule preset name or YAML file (default: $DOCSCAN_RULES or invoice)")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: $DOCSCAN_WORKERS or 4)")
	batchCmd.Flags().Bool("report", false, "Include the validation report for every document")
	batchCmd.Flags().Duration("timeout", 0, "Timeout per document (default: $DOCSCAN_TIMEOUT or 2m)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := logger.WithComponent("batch")

	// Get flags
	outputPath, _ := cmd.Flags().GetString("output")
	engine, _ := cmd.Flags().GetString("engine")
	ruleSet, _ := cmd.Flags().GetString("rules")
	workers, _ := cmd.Flags().GetInt("workers")
	report, _ := cmd.Flags().GetBool("report")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if engine == "" {
		engine = cfg.Engine
	}
	if ruleSet == "" {
		ruleSet = cfg.Rules
	}
	if workers < 1 {
		workers = cfg.Workers
	}
	if timeout <= 0 {
		timeout = cfg.Timeout
	}

	files, err := findDocuments(args)
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No supported documents found.")
		return nil
	}

	log.Info().
		Int("files", len(files)).
		Int("workers", workers).
		Str("engine", engine).
		Str("rules", ruleSet).
		Msg("Starting batch processing")

	// The batch deadline covers every document; each document gets its own below.
	ctx, cancel := createContextWithTimeout(timeout*time.Duration(len(files)), log)
	defer cancel()

	p, err := newPipeline(ctx, cfg, engine, ruleSet, log)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintf(os.Stderr, "Processing %d documents with %d parallel workers...\n", len(files), workers)

	results := processInParallel(ctx, p, files, workers, timeout, report, log)

	out := BatchOutput{
		Engine:  engine,
		RuleSet: p.extractor.Set().Name(),
		Total:   len(results),
		Results: results,
	}
	for _, result := range results {
		switch result.Status {
		case "success":
			out.Success++
		case "warning":
			out.Warnings++
		case "error":
			out.Errors++
		}
	}

	// Print summary
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stderr, "Successful: %d\n", out.Success)
	if out.Warnings > 0 {
		fmt.Fprintf(os.Stderr, "With warnings: %d\n", out.Warnings)
	}
	if out.Errors > 0 {
		fmt.Fprintf(os.Stderr, "Errors: %d\n", out.Errors)
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))

	log.Info().
		Int("total", out.Total).
		Int("success", out.Success).
		Int("warnings", out.Warnings).
		Int("errors", out.Errors).
		Msg("Batch processing completed")

	return writeJSON(out, outputPath, log)
}

// processInParallel runs the pipeline over files with a bounded number of
// workers. Results are indexed by file so the output order is stable.
func processInParallel(ctx context.Context, p *pipeline, files []string, workers int, timeout time.Duration, report bool, log zerolog.Logger) []BatchResult {
	results := make([]BatchResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			results[i] = processOne(gctx, p, file, timeout, report)
			log.Debug().
				Str("file", file).
				Str("status", results[i].Status).
				Msg("Document processed")
			return nil
		})
	}
	// Workers never return errors; failures are recorded per document.
	_ = g.Wait()

	return results
}

func processOne(ctx context.Context, p *pipeline, file string, timeout time.Duration, report bool) BatchResult {
	requestID := uuid.NewString()
	log := logger.WithDocument("batch", file, requestID)
	result := BatchResult{Filename: file}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, analysis, err := p.process(ctx, file, requestID, report)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process document")
		result.Status = "error"
		result.Error = handleProcessingError(err).Error()
		return result
	}

	result.Document = out
	result.Status = "success"
	if len(analysis.Record.Warnings()) > 0 {
		result.Status = "warning"
	}
	if analysis.Quality.NeedsRescan {
		log.Warn().
			Float64("mean_confidence", analysis.Quality.MeanConfidence).
			Msg("Input quality is low, consider rescanning the document")
	}
	return result
}

// findDocuments expands folders into the supported files they contain.
func findDocuments(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	return files, nil
}
