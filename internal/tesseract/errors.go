package tesseract

import "errors"

var (
	// ErrLibraryNotFound is returned when the shared library cannot be opened.
	ErrLibraryNotFound = errors.New("tesseract shared library not found")

	// ErrSymbolNotFound is returned when a required entry point is missing from the library.
	ErrSymbolNotFound = errors.New("tesseract entry point not found")
)
