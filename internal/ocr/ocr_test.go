package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/pkg/models"
)

func visionWord(text string, conf float32, brk visionpb.TextAnnotation_DetectedBreak_BreakType) *visionpb.Word {
	var symbols []*visionpb.Symbol
	for i, r := range text {
		s := &visionpb.Symbol{Text: string(r)}
		if i == len(text)-1 && brk != visionpb.TextAnnotation_DetectedBreak_UNKNOWN {
			s.Property = &visionpb.TextAnnotation_TextProperty{
				DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
			}
		}
		symbols = append(symbols, s)
	}
	return &visionpb.Word{Symbols: symbols, Confidence: conf}
}

func TestSpansFromVision(t *testing.T) {
	space := visionpb.TextAnnotation_DetectedBreak_SPACE
	eol := visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE
	lineBreak := visionpb.TextAnnotation_DetectedBreak_LINE_BREAK

	page := &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Pages: []*visionpb.Page{{
				Property: &visionpb.TextAnnotation_TextProperty{
					DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{{LanguageCode: "en"}, {LanguageCode: "de"}},
				},
				Blocks: []*visionpb.Block{
					{Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{
						visionWord("Invoice", 0.95, space),
						visionWord("#", 0.92, space),
						visionWord("4471", 0.60, eol),
						visionWord("Total:", 0.97, space),
						visionWord("$", 0.90, space),
						visionWord("250.00", 0.55, lineBreak),
					}}}},
					{Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{
						visionWord("Thanks", 0.8, visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
					}}}},
				},
			}},
		},
	}

	result, err := spansFromVision([]*visionpb.AnnotateImageResponse{page})
	require.NoError(t, err)

	var lines []int
	var texts []string
	for _, s := range result.Spans {
		lines = append(lines, s.Line)
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"Invoice", "#", "4471", "Total:", "$", "250.00", "Thanks"}, texts)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 2}, lines)
	assert.InDelta(t, 0.60, result.Spans[2].Confidence, 1e-6)
	assert.Equal(t, 1, result.PageCount)
	assert.Equal(t, []string{"de", "en"}, result.LanguageCodes)
	assert.Equal(t, EngineVision, result.Engine)
}

func TestSpansFromVision_Errors(t *testing.T) {
	_, err := spansFromVision(nil)
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = spansFromVision([]*visionpb.AnnotateImageResponse{{}})
	require.ErrorIs(t, err, ErrEmptyDocument)

	tooMany := make([]*visionpb.AnnotateImageResponse, MaxPagesSync+1)
	_, err = spansFromVision(tooMany)
	require.ErrorIs(t, err, ErrTooManyPages)
}

func docToken(start, end int64, conf float32, handwritten *bool) *documentaipb.Document_Page_Token {
	tok := &documentaipb.Document_Page_Token{
		Layout: &documentaipb.Document_Page_Layout{
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
			},
			Confidence: conf,
		},
	}
	if handwritten != nil {
		tok.StyleInfo = &documentaipb.Document_Page_Token_StyleInfo{Handwritten: *handwritten}
	}
	return tok
}

func TestSpansFromDocument(t *testing.T) {
	yes, no := true, false
	text := "Name: Ayesha\nRoll 42\n"
	doc := &documentaipb.Document{
		Text: text,
		Pages: []*documentaipb.Document_Page{{
			DetectedLanguages: []*documentaipb.Document_Page_DetectedLanguage{{LanguageCode: "en"}},
			Tokens: []*documentaipb.Document_Page_Token{
				docToken(0, 6, 0.98, &no),    // "Name: "
				docToken(6, 13, 0.52, &yes),  // "Ayesha\n"
				docToken(13, 18, 0.97, nil),  // "Roll "
				docToken(18, 21, 0.66, &yes), // "42\n"
				docToken(40, 50, 0.9, nil),   // out of range
			},
		}},
	}

	result, err := spansFromDocument(doc)
	require.NoError(t, err)
	require.Len(t, result.Spans, 4)

	assert.Equal(t, models.RawSpan{Text: "Name:", Confidence: float64(float32(0.98)), Line: 0, Style: models.SourcePrinted}, result.Spans[0])
	assert.Equal(t, "Ayesha", result.Spans[1].Text)
	assert.Equal(t, models.SourceHandwritten, result.Spans[1].Style)
	assert.Equal(t, 0, result.Spans[1].Line)
	assert.Equal(t, "Roll", result.Spans[2].Text)
	assert.Equal(t, 1, result.Spans[2].Line)
	assert.Equal(t, models.SourceKind(""), result.Spans[2].Style)
	assert.Equal(t, 1, result.Spans[3].Line)
	assert.Equal(t, []string{"en"}, result.LanguageCodes)
}

func TestSpansFromDocument_Empty(t *testing.T) {
	_, err := spansFromDocument(&documentaipb.Document{})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = spansFromDocument(&documentaipb.Document{Text: "   ", Pages: []*documentaipb.Document_Page{{}}})
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestDocumentAIConfig(t *testing.T) {
	cfg := DocumentAIConfig{ProjectID: "p", ProcessorID: "abc"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "us", cfg.Location)
	assert.Equal(t, DefaultDocumentAITimeout, cfg.Timeout)
	assert.Equal(t, "projects/p/locations/us/processors/abc", cfg.processorName())

	cfg.ProcessorVersion = "v2"
	assert.Equal(t, "projects/p/locations/us/processors/abc/processorVersions/v2", cfg.processorName())

	missing := DocumentAIConfig{ProjectID: "p"}
	require.ErrorIs(t, missing.Validate(), ErrInvalidConfiguration)
}

func TestSpansRecognizer(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []models.RawSpan
	}{
		{
			name: "tuples",
			data: `[["Invoice", 0.95, 0], ["4471", 60, 0]]`,
			want: []models.RawSpan{{Text: "Invoice", Confidence: 0.95}, {Text: "4471", Confidence: 60}},
		},
		{
			name: "objects",
			data: `[{"text": "Ayesha", "confidence": 0.5, "line": 2, "style": "handwritten"}]`,
			want: []models.RawSpan{{Text: "Ayesha", Confidence: 0.5, Line: 2, Style: models.SourceHandwritten}},
		},
		{
			name: "wrapped",
			data: `{"spans": [{"text": "x", "confidence": 1, "line": 0}]}`,
			want: []models.RawSpan{{Text: "x", Confidence: 1}},
		},
	}

	r := NewSpansRecognizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Recognize(context.Background(), Document{Name: "t.json", Data: []byte(tt.data)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Spans)
			assert.Equal(t, EngineSpans, result.Engine)
		})
	}

	_, err := r.Recognize(context.Background(), Document{Data: []byte("not json")})
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Recognize(ctx, Document{Data: []byte("[]")})
	require.ErrorIs(t, err, ErrContextCanceled)
}

func TestMeanConfidence(t *testing.T) {
	assert.Equal(t, 0.0, meanConfidence(nil))
	assert.InDelta(t, 0.75, meanConfidence([]models.RawSpan{{Confidence: 0.9}, {Confidence: 60}}), 1e-9)
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New(context.Background(), "abbyy", Config{})
	require.ErrorIs(t, err, ErrUnknownEngine)

	var ocrErr *OCRError
	require.ErrorAs(t, err, &ocrErr)
	assert.Equal(t, "New", ocrErr.Op)
	assert.Contains(t, err.Error(), "documentai")
}

func TestNew_DocumentAIRequiresProcessor(t *testing.T) {
	_, err := New(context.Background(), EngineDocumentAI, Config{DocumentAI: DocumentAIConfig{ProjectID: "p"}})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7\n..."), 0o644))
	spans := filepath.Join(dir, "scan.json")
	require.NoError(t, os.WriteFile(spans, []byte("[]"), 0o644))

	doc, err := ReadDocument(pdf)
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", doc.Name)
	assert.Equal(t, "application/pdf", doc.MimeType)

	doc, err = ReadDocument(spans)
	require.NoError(t, err)
	assert.Equal(t, "application/json", doc.MimeType)

	_, err = ReadDocument(filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckDocument(t *testing.T) {
	require.NoError(t, checkDocument("t", Document{Data: []byte("%PDF-1.4"), MimeType: "application/pdf"}, 100))
	require.ErrorIs(t, checkDocument("t", Document{}, 100), ErrEmptyDocument)
	require.ErrorIs(t, checkDocument("t", Document{Data: make([]byte, 101)}, 100), ErrDocumentTooLarge)
	require.ErrorIs(t, checkDocument("t", Document{Data: []byte("hello"), MimeType: "application/pdf"}, 100), ErrInvalidPDF)
}

func TestWrapOCRError(t *testing.T) {
	assert.NoError(t, WrapOCRError("op", nil, ""))

	wrapped := WrapOCRError("Recognize", ErrOCRFailed, "boom")
	assert.Equal(t, "ocr: Recognize failed: boom: OCR processing failed", wrapped.Error())
	assert.Same(t, wrapped, WrapOCRError("Other", wrapped, "again"))
	assert.ErrorIs(t, wrapped, ErrOCRFailed)
}
