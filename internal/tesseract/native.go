// Package tesseract binds the libtesseract C API.
//
// The binding is split in two layers:
//   - Native: the raw entry points, one method per C function the recognizer needs.
//   - Library: a Native backed by a shared library loaded at runtime with purego,
//     so no cgo toolchain or tesseract headers are needed at build time.
//
// Handles and text pointers are opaque. Text returned by GetUTF8Text and
// ProcessPages belongs to the library until it is passed to DeleteText.
package tesseract

// Handle identifies one TessBaseAPI instance inside the native library.
// The zero value is never a live handle.
type Handle uintptr

// EngineMode mirrors TessOcrEngineMode from tesseract's publictypes.h.
type EngineMode int32

const (
	OEMTesseractOnly         EngineMode = 0
	OEMLSTMOnly              EngineMode = 1
	OEMTesseractLSTMCombined EngineMode = 2
	OEMDefault               EngineMode = 3
)

// String returns the tesseract name of the mode.
func (m EngineMode) String() string {
	switch m {
	case OEMTesseractOnly:
		return "tesseract_only"
	case OEMLSTMOnly:
		return "lstm_only"
	case OEMTesseractLSTMCombined:
		return "tesseract_lstm_combined"
	case OEMDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Native is the set of libtesseract entry points the recognizer drives.
//
// Implementations are not safe for concurrent use on the same Handle.
type Native interface {
	// Create allocates a new engine context. A zero Handle means allocation failed.
	Create() Handle

	// Init configures the engine for the language pack found under dataDir.
	// A non-zero status means the engine could not be initialized.
	Init(h Handle, dataDir, language string, mode EngineMode) int

	// SetImage hands the engine a packed pixel buffer. The engine keeps a
	// reference to data until the following recognition call returns.
	SetImage(h Handle, data []byte, width, height, bytesPerPixel, bytesPerLine int)

	// GetUTF8Text recognizes the current image and returns a nul-terminated
	// UTF-8 string, or nil on failure.
	GetUTF8Text(h Handle) *byte

	// ProcessPages recognizes the image file at path and returns a
	// nul-terminated UTF-8 string, or nil on failure.
	ProcessPages(h Handle, path string) *byte

	// DeleteText releases a string returned by GetUTF8Text or ProcessPages.
	DeleteText(text *byte)

	// Delete releases the engine context. The handle must not be used afterwards.
	Delete(h Handle)
}
