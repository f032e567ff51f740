package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrInit is returned when the native engine cannot be created or initialized,
	// typically because the language pack is missing from the tessdata directory.
	ErrInit = errors.New("tesseract initialization failed")

	// ErrSource is returned when the image cannot be fetched or decoded.
	ErrSource = errors.New("image source failed")

	// ErrBuffer is returned when a packed pixel buffer violates its geometry.
	// It indicates a defect in buffer construction, not bad input.
	ErrBuffer = errors.New("invalid pixel buffer")

	// ErrEmptyResult is returned when the engine hands back no text at all.
	ErrEmptyResult = errors.New("recognition returned no text")

	// ErrInvalidEncoding is returned when the engine's text is not valid UTF-8.
	ErrInvalidEncoding = errors.New("recognized text is not valid UTF-8")

	// ErrNotInitialized is returned when an Engine is used without a live handle.
	ErrNotInitialized = errors.New("engine is not initialized")

	// ErrEngineClosed is returned when an Engine is used after Close.
	ErrEngineClosed = errors.New("engine is closed")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "RecognizeFile", "New").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}

// IsPrecondition reports whether err comes from using an Engine that has no live handle.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrEngineClosed)
}
