// Package ocr recognizes text in images with a native tesseract engine.
//
// An Engine owns exactly one tesseract handle from New until Close. Two
// request modes are supported:
//   - File mode hands a path to the engine, which decodes the image itself.
//     Newlines are removed from the result.
//   - Image mode packs an already decoded image into an RGBA buffer, upscaling
//     images narrower than the minimum width first. Newlines are kept as the
//     engine returned them.
//
// Callers of file mode depend on getting a single line back, so the two modes
// intentionally disagree on newlines.
//
// Native calls block and cannot be canceled. Engine methods are serialized,
// so an Engine may be shared between goroutines but never runs two
// recognitions at once.
package ocr

import (
	"context"
	"image"
	"time"
)

// Mode identifies how an image reached the engine.
type Mode string

const (
	// ModeFile recognizes an image file decoded by the engine itself.
	ModeFile Mode = "file"

	// ModeImage recognizes a packed pixel buffer built in-process.
	ModeImage Mode = "image"
)

// Service defines the interface for tesseract text extraction.
type Service interface {
	// RecognizeFile extracts text from the image file at path.
	// Newlines are stripped from the returned text.
	RecognizeFile(path string) (*OCRResult, error)

	// RecognizeImage extracts text from a decoded image, upscaling it to
	// minWidth first when it is narrower.
	RecognizeImage(img image.Image, minWidth int) (*OCRResult, error)

	// RecognizeURL loads ref through loader and recognizes it as RecognizeImage does.
	RecognizeURL(ctx context.Context, loader ImageLoader, ref string, minWidth int) (*OCRResult, error)

	// Close releases the native engine.
	Close() error
}

// ImageLoader resolves an image reference (URL or path) to a decoded image.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the recognized text.
	Text string `json:"text"`

	// Mode is the request mode that produced Text.
	Mode Mode `json:"mode"`

	// Width and Height are the dimensions handed to the engine in image mode.
	// Both are zero in file mode, where the engine decodes the file itself.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Language is the tesseract language code the engine was initialized with.
	Language string `json:"language"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
