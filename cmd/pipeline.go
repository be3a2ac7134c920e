package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"docscan/internal/config"
	"docscan/internal/extract"
	"docscan/internal/ocr"
	"docscan/internal/record"
	"docscan/internal/rules"
	"docscan/pkg/models"
)

// DocumentOutput is the JSON written for one processed document.
type DocumentOutput struct {
	File       string               `json:"file"`
	RequestID  string               `json:"request_id"`
	Engine     string               `json:"engine"`
	RuleSet    string               `json:"rule_set"`
	Record     record.Record        `json:"record"`
	Report     []models.Warning     `json:"report,omitempty"`
	Review     []record.FieldReview `json:"review,omitempty"`
	Quality    *extract.Quality     `json:"quality,omitempty"`
	PageCount  int                  `json:"page_count,omitempty"`
	Languages  []string             `json:"language_codes,omitempty"`
	OCRTime    string               `json:"ocr_duration,omitempty"`
	Candidates int                  `json:"candidates,omitempty"`
}

// pipeline is the recognizer and extractor shared by every document of one run.
type pipeline struct {
	recognizer ocr.Recognizer
	extractor  *extract.Extractor
}

func newPipeline(ctx context.Context, cfg *config.Config, engine, ruleSet string, log zerolog.Logger) (*pipeline, error) {
	set, err := rules.LoadNamed(ruleSet)
	if err != nil {
		log.Error().
			Err(err).
			Str("rules", ruleSet).
			Msg("Failed to load rule set")
		return nil, fmt.Errorf("failed to load rule set %q: %w", ruleSet, err)
	}

	recognizer, err := ocr.New(ctx, engine, cfg.OCRConfig())
	if err != nil {
		return nil, handleEngineError(engine, err, log)
	}

	log.Debug().
		Str("engine", recognizer.Name()).
		Str("rule_set", set.Name()).
		Int("rules", set.Len()).
		Msg("Pipeline created successfully")

	return &pipeline{
		recognizer: recognizer,
		extractor:  extract.NewExtractor(set, cfg.ExtractOptions()),
	}, nil
}

func (p *pipeline) Close() error {
	return p.recognizer.Close()
}

// process recognizes one file and extracts its record.
func (p *pipeline) process(ctx context.Context, path, requestID string, report bool) (*DocumentOutput, *extract.Analysis, error) {
	doc, err := ocr.ReadDocument(path)
	if err != nil {
		return nil, nil, err
	}

	recognition, err := p.recognizer.Recognize(ctx, doc)
	if err != nil {
		return nil, nil, err
	}

	analysis, err := p.extractor.Analyze(recognition.Spans)
	if err != nil {
		return nil, nil, err
	}

	out := &DocumentOutput{
		File:      filepath.Base(path),
		RequestID: requestID,
		Engine:    recognition.Engine,
		RuleSet:   p.extractor.Set().Name(),
		Record:    analysis.Record,
	}
	if report {
		out.Report = analysis.Record.Report()
		out.Review = analysis.Record.Review()
		out.Quality = &analysis.Quality
		out.PageCount = recognition.PageCount
		out.Languages = recognition.LanguageCodes
		out.OCRTime = recognition.ProcessingDuration.String()
		out.Candidates = analysis.Candidates
	}
	return out, &analysis, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleEngineError explains engine construction failures.
func handleEngineError(engine string, err error, log zerolog.Logger) error {
	log.Error().
		Err(err).
		Str("engine", engine).
		Msg("Failed to create OCR engine")

	switch {
	case errors.Is(err, ocr.ErrUnknownEngine):
		return fmt.Errorf("unknown OCR engine %q. Available engines: %s", engine, strings.Join(ocr.Engines, ", "))
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return fmt.Errorf("OCR engine %q is not available in this build. Rebuild with -tags %s or pick another engine: %w", engine, engine, err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials validation failed. Please set one of:\n\n"+
			"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n"+
			"2. GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Application Default Credentials via: gcloud auth application-default login\n\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrInvalidConfiguration):
		return fmt.Errorf("OCR engine %q is misconfigured. Check GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION and DOCUMENT_AI_PROCESSOR_ID: %w", engine, err)
	default:
		return fmt.Errorf("failed to create OCR engine %q: %w", engine, err)
	}
}

// handleProcessingError provides user-friendly error messages for document failures
func handleProcessingError(err error) error {
	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled), errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, extract.ErrEmptyInput):
		return fmt.Errorf("no usable text found in the document. The OCR engine returned no spans")
	case errors.Is(err, ocr.ErrDocumentTooLarge):
		return fmt.Errorf("document is too large (maximum %d bytes). Try compressing or splitting the file", ocr.MaxFileSizeBytes)
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("document has too many pages (maximum %d pages). Try splitting into smaller files", ocr.MaxPagesSync)
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported document format for this engine: %w", err)
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. The file may be blank or corrupted")
	case errors.Is(err, ocr.ErrPermissionDenied):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account has access to the OCR API: %w", err)
	case errors.Is(err, ocr.ErrQuotaExceeded):
		return fmt.Errorf("Google Cloud API quota exceeded. Check your project quotas in the Google Cloud Console")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials: %w", err)
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues or service unavailability: %w", err)
	default:
		return fmt.Errorf("processing failed: %w", err)
	}
}

// writeJSON writes v as indented JSON to outputPath or stdout.
func writeJSON(v any, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON output")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	data = append(data, '\n')

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
