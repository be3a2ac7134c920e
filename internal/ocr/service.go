// Package ocr adapts OCR engines to the raw span stream the extractor consumes.
//
// Every engine produces []models.RawSpan: recognized text in reading order with
// the engine's own confidence and a non-decreasing line index. Engines are
// constructed explicitly by the caller and closed when done.
//
// Supported engines:
//   - spans: pre-recognized spans from a JSON file (no OCR call)
//   - vision: Google Cloud Vision document text detection (images and PDFs)
//   - documentai: Google Document AI OCR processor, with handwriting style hints
//   - tesseract: local Tesseract through gosseract (build tag "tesseract")
//
// Credentials for the Google engines come from GOOGLE_CREDENTIALS (inline JSON)
// or GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to application
// default credentials.
//
// Cloud Vision API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous PDF processing
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docscan/pkg/models"
)

const (
	EngineSpans      = "spans"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
	EngineTesseract  = "tesseract"
)

// Engines lists the engine names accepted by New.
var Engines = []string{EngineSpans, EngineVision, EngineDocumentAI, EngineTesseract}

// Document is one input file.
type Document struct {
	Name     string
	Data     []byte
	MimeType string
}

// Recognition is the output of one engine call.
type Recognition struct {
	// Spans are in reading order with non-decreasing line indexes.
	Spans []models.RawSpan `json:"spans"`

	// Engine names the engine that produced the spans.
	Engine string `json:"engine"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average span confidence on the 0-1 scale.
	Confidence float64 `json:"confidence"`

	// LanguageCodes contains the detected languages in the document.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Recognizer turns a document into raw spans.
type Recognizer interface {
	// Recognize runs OCR on doc.
	Recognize(ctx context.Context, doc Document) (*Recognition, error)

	// Name returns the engine name.
	Name() string

	// Close releases engine resources.
	Close() error
}

// Credentials selects Google client credentials. Empty means application defaults.
type Credentials struct {
	JSON string
	File string
}

// Config holds the settings of every engine; each engine reads its own part.
type Config struct {
	Credentials Credentials
	DocumentAI  DocumentAIConfig
	// TesseractLanguages are passed to Tesseract, e.g. "eng", "deu".
	TesseractLanguages []string
}

// New creates the named engine.
func New(ctx context.Context, engine string, cfg Config) (Recognizer, error) {
	switch engine {
	case EngineSpans:
		return NewSpansRecognizer(), nil
	case EngineVision:
		return NewVisionRecognizer(ctx, cfg.Credentials)
	case EngineDocumentAI:
		return NewDocumentAIRecognizer(ctx, cfg.DocumentAI, cfg.Credentials)
	case EngineTesseract:
		return NewTesseractRecognizer(cfg.TesseractLanguages)
	default:
		return nil, NewOCRError("New", ErrUnknownEngine,
			fmt.Sprintf("%q (available: %s)", engine, strings.Join(Engines, ", ")))
	}
}

// ReadDocument loads a file and detects its MIME type.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, WrapOCRError("ReadDocument", err, path)
	}
	return Document{
		Name:     filepath.Base(path),
		Data:     data,
		MimeType: DetectMimeType(path, data),
	}, nil
}

// DetectMimeType sniffs data, using the file extension for types the sniffer misses.
func DetectMimeType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return strings.SplitN(http.DetectContentType(data), ";", 2)[0]
}

func isPDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

// checkDocument applies the size limit and rejects documents that claim to be PDFs but are not.
func checkDocument(op string, doc Document, maxSize int) error {
	if len(doc.Data) == 0 {
		return NewOCRError(op, ErrEmptyDocument, doc.Name)
	}
	if len(doc.Data) > maxSize {
		return NewOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(doc.Data)))
	}
	if doc.MimeType == "application/pdf" && !isPDF(doc.Data) {
		return NewOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	return nil
}

// meanConfidence averages span confidences, reading values above 1 as percentages.
func meanConfidence(spans []models.RawSpan) float64 {
	if len(spans) == 0 {
		return 0
	}
	var sum float64
	for _, s := range spans {
		c := s.Confidence
		if c > 1 {
			c /= 100
		}
		sum += c
	}
	return sum / float64(len(spans))
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
