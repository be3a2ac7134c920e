package ocr

import (
	"errors"
	"fmt"
)

// Input errors: the document cannot be sent to any engine as it is.
var (
	// ErrDocumentTooLarge means the file is above MaxFileSizeBytes, the synchronous limit of the cloud engines.
	ErrDocumentTooLarge = errors.New("document size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF means a file announced as PDF lacks the %PDF header.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrUnsupportedFormat means the engine cannot read this MIME type or span file.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrTooManyPages means a PDF has more than MaxPagesSync pages.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument means the engine found no words at all.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// Engine errors: selecting, configuring or running an engine failed.
var (
	ErrUnknownEngine        = errors.New("unknown OCR engine")
	ErrEngineUnavailable    = errors.New("OCR engine not available in this build")
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")
	ErrOCRFailed            = errors.New("OCR processing failed")
	ErrContextCanceled      = errors.New("OCR processing was canceled")

	// ErrMissingCredentials is returned by the Google engines when no client
	// could be built from GOOGLE_CREDENTIALS, GOOGLE_APPLICATION_CREDENTIALS or
	// application default credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrQuotaExceeded and ErrPermissionDenied map the cloud API status of the same name.
	ErrQuotaExceeded    = errors.New("OCR API quota exceeded")
	ErrPermissionDenied = errors.New("insufficient permissions for OCR API")
)

// OCRError records which engine step failed. It unwraps to the sentinel, so
// callers branch with errors.Is on the values above, not on messages.
type OCRError struct {
	// Op names the step, such as "Recognize" or "NewDocumentAIRecognizer".
	Op string
	// Err is the sentinel or API error.
	Err error
	// Details carries the document name, MIME type or API message, if any.
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError builds an OCRError for op.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{Op: op, Err: err, Details: details}
}

// WrapOCRError wraps err for op. An error that already carries an OCRError
// keeps its innermost step, so the report names where recognition broke.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return NewOCRError(op, err, details)
}
