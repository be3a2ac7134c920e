package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

// DefaultDocumentAITimeout bounds one ProcessDocument call.
const DefaultDocumentAITimeout = 60 * time.Second

// DocumentAIConfig holds configuration for a Document AI OCR processor.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where your Document AI processor is created.
	Location string

	// ProcessorID is the ID of a Document OCR processor.
	ProcessorID string

	// ProcessorVersion specifies a particular processor version.
	// If empty, uses the default version.
	ProcessorVersion string

	// Timeout is the maximum time to wait for processing.
	// Default: 60 seconds.
	Timeout time.Duration
}

// Validate checks the required settings and fills defaults.
func (c *DocumentAIConfig) Validate() error {
	if c.ProjectID == "" {
		return NewOCRError("DocumentAIConfig", ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if c.ProcessorID == "" {
		return NewOCRError("DocumentAIConfig", ErrInvalidConfiguration, "GOOGLE_PROCESSOR_ID is required")
	}
	if c.Location == "" {
		c.Location = "us"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultDocumentAITimeout
	}
	return nil
}

// processorName constructs the full processor name for the Document AI API.
func (c DocumentAIConfig) processorName() string {
	if c.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			c.ProjectID, c.Location, c.ProcessorID, c.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIRecognizer implements Recognizer using a Document AI OCR processor.
// Unlike Vision it reports per-token handwriting style, which becomes the span's style hint.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIRecognizer creates a processor client for the configured location.
func NewDocumentAIRecognizer(ctx context.Context, config DocumentAIConfig, creds Credentials) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var clientOpts []option.ClientOption
	// Set regional endpoint if not us
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	credOpts := clientOptions(creds)
	clientOpts = append(clientOpts, credOpts...)

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOpts...)
	if err != nil {
		if len(credOpts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewDocumentAIRecognizerWithClient(config, client), nil
}

// NewDocumentAIRecognizerWithClient creates a recognizer with explicit config and client (for testing).
func NewDocumentAIRecognizerWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIRecognizer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultDocumentAITimeout
	}
	return &DocumentAIRecognizer{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-document-ai"),
	}
}

// Name returns the engine name.
func (p *DocumentAIRecognizer) Name() string { return EngineDocumentAI }

// Recognize sends doc to the processor and converts its tokens to spans.
func (p *DocumentAIRecognizer) Recognize(ctx context.Context, doc Document) (*Recognition, error) {
	const op = "Recognize"
	startTime := time.Now()

	if err := checkDocument(op, doc, MaxFileSizeBytes); err != nil {
		return nil, err
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: p.config.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  doc.Data,
				MimeType: doc.MimeType,
			},
		},
	})
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}
	if resp.GetDocument() == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	result, err := spansFromDocument(resp.GetDocument())
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Document AI response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	p.log.Debug().
		Str("document", doc.Name).
		Str("processor", p.config.ProcessorID).
		Int("pages", result.PageCount).
		Int("spans", len(result.Spans)).
		Float64("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Document AI recognition completed")

	return result, nil
}

// handleProcessingError converts Document AI errors to OCR errors.
func (p *DocumentAIRecognizer) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "PermissionDenied"):
		return WrapOCRError(op, ErrPermissionDenied, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		return WrapOCRError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND") || strings.Contains(errStr, "NotFound"):
		return WrapOCRError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT") || strings.Contains(errStr, "InvalidArgument"):
		return WrapOCRError(op, ErrUnsupportedFormat, "document format not supported or corrupted")
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "DeadlineExceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case errors.Is(err, context.Canceled) || strings.Contains(errStr, "Canceled"):
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// spansFromDocument turns page tokens into spans. Token text comes from the
// document text through the token's text anchor; a newline inside or before a
// token, or a new page, starts the next line.
func spansFromDocument(doc *documentaipb.Document) (*Recognition, error) {
	text := doc.GetText()
	pages := doc.GetPages()
	if len(pages) == 0 || strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	var spans []models.RawSpan
	languages := make(map[string]bool)
	line := 0
	lineOpen := false
	var prevEnd int64

	for _, page := range pages {
		if lineOpen {
			line++
			lineOpen = false
		}
		for _, lang := range page.GetDetectedLanguages() {
			if lang.GetLanguageCode() != "" {
				languages[lang.GetLanguageCode()] = true
			}
		}

		for _, token := range page.GetTokens() {
			start, end, ok := anchorRange(token.GetLayout().GetTextAnchor(), len(text))
			if !ok {
				continue
			}
			if lineOpen && start > prevEnd && strings.Contains(text[prevEnd:start], "\n") {
				line++
				lineOpen = false
			}
			prevEnd = end

			raw := text[start:end]
			word := strings.TrimSpace(raw)
			if word != "" {
				span := models.RawSpan{
					Text:       word,
					Confidence: float64(token.GetLayout().GetConfidence()),
					Line:       line,
				}
				if style := token.GetStyleInfo(); style != nil {
					if style.GetHandwritten() {
						span.Style = models.SourceHandwritten
					} else {
						span.Style = models.SourcePrinted
					}
				}
				spans = append(spans, span)
				lineOpen = true
			}
			if strings.Contains(raw, "\n") && lineOpen {
				line++
				lineOpen = false
			}
		}
	}

	if len(spans) == 0 {
		return nil, ErrEmptyDocument
	}

	return &Recognition{
		Spans:         spans,
		Engine:        EngineDocumentAI,
		PageCount:     len(pages),
		Confidence:    meanConfidence(spans),
		LanguageCodes: sortedKeys(languages),
	}, nil
}

// anchorRange returns the byte range covered by an anchor's segments, clamped to the text.
func anchorRange(anchor *documentaipb.Document_TextAnchor, textLen int) (int64, int64, bool) {
	segments := anchor.GetTextSegments()
	if len(segments) == 0 {
		return 0, 0, false
	}
	start := segments[0].GetStartIndex()
	end := segments[len(segments)-1].GetEndIndex()
	if start < 0 {
		start = 0
	}
	if end > int64(textLen) {
		end = int64(textLen)
	}
	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// Close closes the underlying Document AI client.
func (p *DocumentAIRecognizer) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
