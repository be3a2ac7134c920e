//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

// TesseractRecognizer implements Recognizer with a local Tesseract installation.
// Each call uses its own client, so one recognizer may serve parallel documents.
type TesseractRecognizer struct {
	clientFactory func() *gosseract.Client
	languages     []string
	log           zerolog.Logger
}

// NewTesseractRecognizer creates a Tesseract-backed recognizer.
func NewTesseractRecognizer(languages []string) (Recognizer, error) {
	return &TesseractRecognizer{
		clientFactory: gosseract.NewClient,
		languages:     append([]string(nil), languages...),
		log:           logger.WithComponent("ocr-tesseract"),
	}, nil
}

// Name returns the engine name.
func (t *TesseractRecognizer) Name() string { return EngineTesseract }

// Close is a no-op; clients are closed per call.
func (t *TesseractRecognizer) Close() error { return nil }

// Recognize runs Tesseract on an image.
func (t *TesseractRecognizer) Recognize(ctx context.Context, doc Document) (*Recognition, error) {
	const op = "Recognize"
	startTime := time.Now()

	if err := checkDocument(op, doc, MaxFileSizeBytes); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(doc.MimeType, "image/") {
		return nil, WrapOCRError(op, ErrUnsupportedFormat, doc.MimeType)
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(doc.Data); err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("set image: %v", err))
	}
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return nil, WrapOCRError(op, ErrInvalidConfiguration, fmt.Sprintf("set languages: %v", err))
		}
	}

	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("recognize words: %v", err))
	}

	spans := spansFromBoxes(boxes)
	if len(spans) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, doc.Name)
	}

	now := time.Now()
	result := &Recognition{
		Spans:              spans,
		Engine:             EngineTesseract,
		PageCount:          1,
		Confidence:         meanConfidence(spans),
		LanguageCodes:      append([]string(nil), t.languages...),
		ProcessedAt:        now,
		ProcessingDuration: now.Sub(startTime),
	}

	t.log.Debug().
		Str("document", doc.Name).
		Int("spans", len(spans)).
		Float64("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Tesseract recognition completed")

	return result, nil
}

// spansFromBoxes converts word boxes; a change of block, paragraph or line number starts a new line.
// Tesseract confidences are percentages and are passed through for the normalizer to scale.
func spansFromBoxes(boxes []gosseract.BoundingBox) []models.RawSpan {
	spans := make([]models.RawSpan, 0, len(boxes))
	line := -1
	var block, par, ln int
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		if line < 0 || b.BlockNum != block || b.ParNum != par || b.LineNum != ln {
			line++
			block, par, ln = b.BlockNum, b.ParNum, b.LineNum
		}
		spans = append(spans, models.RawSpan{
			Text:       word,
			Confidence: b.Confidence,
			Line:       line,
		})
	}
	return spans
}
