package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

// SpansRecognizer reads spans that were recognized elsewhere. It accepts a JSON
// array of spans (objects or ["text", confidence, line] tuples) or an object
// with a "spans" array.
type SpansRecognizer struct {
	log zerolog.Logger
}

// NewSpansRecognizer creates a recognizer for span JSON files.
func NewSpansRecognizer() *SpansRecognizer {
	return &SpansRecognizer{log: logger.WithComponent("ocr-spans")}
}

// Name returns the engine name.
func (s *SpansRecognizer) Name() string { return EngineSpans }

// Close is a no-op.
func (s *SpansRecognizer) Close() error { return nil }

// Recognize decodes doc as span JSON.
func (s *SpansRecognizer) Recognize(ctx context.Context, doc Document) (*Recognition, error) {
	const op = "Recognize"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
	}

	spans, err := decodeSpans(doc.Data)
	if err != nil {
		return nil, WrapOCRError(op, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err), doc.Name)
	}

	s.log.Debug().
		Str("document", doc.Name).
		Int("spans", len(spans)).
		Msg("Spans loaded")

	now := time.Now()
	return &Recognition{
		Spans:              spans,
		Engine:             EngineSpans,
		PageCount:          1,
		Confidence:         meanConfidence(spans),
		ProcessedAt:        now,
		ProcessingDuration: now.Sub(start),
	}, nil
}

func decodeSpans(data []byte) ([]models.RawSpan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty span file")
	}

	if trimmed[0] == '{' {
		var wrapped struct {
			Spans []models.RawSpan `json:"spans"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode span object: %w", err)
		}
		return wrapped.Spans, nil
	}

	var spans []models.RawSpan
	if err := json.Unmarshal(trimmed, &spans); err != nil {
		return nil, fmt.Errorf("decode span array: %w", err)
	}
	return spans, nil
}
