package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docscan/internal/logger"
	"docscan/pkg/models"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

// VisionRecognizer implements Recognizer using Google Cloud Vision document text detection.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// clientOptions turns credentials into client options; none means application defaults.
func clientOptions(creds Credentials) []option.ClientOption {
	switch {
	case creds.JSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds.JSON))}
	case creds.File != "":
		return []option.ClientOption{option.WithCredentialsFile(creds.File)}
	default:
		return nil
	}
}

// NewVisionRecognizer creates a Vision client with the given credentials.
func NewVisionRecognizer(ctx context.Context, creds Credentials) (*VisionRecognizer, error) {
	const op = "NewVisionRecognizer"

	opts := clientOptions(creds)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return NewVisionRecognizerWithClient(client), nil
}

// NewVisionRecognizerWithClient creates a recognizer with an explicit client (for testing).
func NewVisionRecognizerWithClient(client *vision.ImageAnnotatorClient) *VisionRecognizer {
	return &VisionRecognizer{
		client: client,
		log:    logger.WithComponent("ocr-vision"),
	}
}

// Name returns the engine name.
func (g *VisionRecognizer) Name() string { return EngineVision }

// Recognize runs document text detection on an image or a PDF of up to MaxPagesSync pages.
func (g *VisionRecognizer) Recognize(ctx context.Context, doc Document) (*Recognition, error) {
	const op = "Recognize"
	startTime := time.Now()

	if err := checkDocument(op, doc, MaxFileSizeBytes); err != nil {
		return nil, err
	}

	features := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}
	var pages []*visionpb.AnnotateImageResponse

	if doc.MimeType == "application/pdf" {
		resp, err := g.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: doc.Data, MimeType: doc.MimeType},
				Features:    features,
			}},
		})
		if err != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}
		if len(resp.Responses) == 0 {
			return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
		}
		fileResp := resp.Responses[0]
		if fileResp.Error != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
		}
		pages = fileResp.Responses
	} else {
		if !strings.HasPrefix(doc.MimeType, "image/") {
			return nil, WrapOCRError(op, ErrUnsupportedFormat, doc.MimeType)
		}
		resp, err := g.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
			Requests: []*visionpb.AnnotateImageRequest{{
				Image:    &visionpb.Image{Content: doc.Data},
				Features: features,
			}},
		})
		if err != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}
		pages = resp.Responses
	}

	result, err := spansFromVision(pages)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	g.log.Debug().
		Str("document", doc.Name).
		Int("pages", result.PageCount).
		Int("spans", len(result.Spans)).
		Float64("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Vision recognition completed")

	return result, nil
}

// spansFromVision flattens per-page annotations into word spans. A word gets
// the Vision word confidence; a detected line break, a new block or a new page
// starts the next line.
func spansFromVision(pages []*visionpb.AnnotateImageResponse) (*Recognition, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(pages) > MaxPagesSync {
		return nil, NewOCRError("spansFromVision", ErrTooManyPages, fmt.Sprintf("document has %d pages", len(pages)))
	}

	var spans []models.RawSpan
	languages := make(map[string]bool)
	line := 0
	lineOpen := false
	breakLine := func() {
		if lineOpen {
			line++
			lineOpen = false
		}
	}

	for pageIdx, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		annotation := page.GetFullTextAnnotation()
		if annotation == nil {
			continue
		}
		for _, p := range annotation.GetPages() {
			breakLine()
			for _, lang := range p.GetProperty().GetDetectedLanguages() {
				if lang.GetLanguageCode() != "" {
					languages[lang.GetLanguageCode()] = true
				}
			}
			for _, block := range p.GetBlocks() {
				breakLine()
				for _, paragraph := range block.GetParagraphs() {
					for _, word := range paragraph.GetWords() {
						var text strings.Builder
						lineEnds := false
						for _, symbol := range word.GetSymbols() {
							text.WriteString(symbol.GetText())
							switch symbol.GetProperty().GetDetectedBreak().GetType() {
							case visionpb.TextAnnotation_DetectedBreak_LINE_BREAK,
								visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE:
								lineEnds = true
							}
						}
						if text.Len() > 0 {
							spans = append(spans, models.RawSpan{
								Text:       text.String(),
								Confidence: float64(word.GetConfidence()),
								Line:       line,
							})
							lineOpen = true
						}
						if lineEnds {
							breakLine()
						}
					}
				}
			}
		}
	}

	if len(spans) == 0 {
		return nil, ErrEmptyDocument
	}

	return &Recognition{
		Spans:         spans,
		Engine:        EngineVision,
		PageCount:     len(pages),
		Confidence:    meanConfidence(spans),
		LanguageCodes: sortedKeys(languages),
	}, nil
}

// Close closes the underlying Vision client.
func (g *VisionRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
