package ocr

import (
	"unicode/utf8"

	"tessocr/internal/tesseract"
)

// textFromPointer copies the engine's nul-terminated string into Go memory.
// The copy is taken before the pointer is released or reused by the engine.
func textFromPointer(p *byte) (string, error) {
	if p == nil {
		return "", ErrEmptyResult
	}
	raw := tesseract.BytesAt(p)
	if !utf8.Valid(raw) {
		return "", ErrInvalidEncoding
	}
	return string(raw), nil
}
