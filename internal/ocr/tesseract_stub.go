//go:build !tesseract

package ocr

// NewTesseractRecognizer reports that Tesseract support was not compiled in.
// Build with -tags tesseract (requires libtesseract) to enable it.
func NewTesseractRecognizer(languages []string) (Recognizer, error) {
	return nil, NewOCRError("NewTesseractRecognizer", ErrEngineUnavailable, "rebuild with -tags tesseract")
}
