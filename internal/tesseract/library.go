package tesseract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/rs/zerolog"

	"tessocr/internal/logger"
)

// Library is a Native backed by libtesseract loaded at runtime.
type Library struct {
	path   string
	handle uintptr
	lept   uintptr
	log    zerolog.Logger

	tessVersion  func() *byte
	create       func() uintptr
	init2        func(handle uintptr, dataPath, language string, oem int32) int32
	setImage     func(handle uintptr, data *byte, width, height, bytesPerPixel, bytesPerLine int32)
	getUTF8Text  func(handle uintptr) *byte
	deleteAPI    func(handle uintptr)
	deleteText   func(text *byte)
	setImage2    func(handle uintptr, pix uintptr)
	setInputName func(handle uintptr, name string)
	pixRead      func(path string) uintptr
	pixDestroy   func(pix *uintptr)

	mu     sync.Mutex
	pinned map[Handle]*runtime.Pinner
}

var _ Native = (*Library)(nil)

// LibraryFile returns the platform file name of libtesseract inside dir.
// An empty dir leaves the lookup to the dynamic loader's search path.
func LibraryFile(dir string) string {
	name := "libtesseract.so"
	if runtime.GOOS == "darwin" {
		name = "libtesseract.dylib"
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// leptonicaFiles are tried when pixRead is not reachable through libtesseract.
func leptonicaFiles(dir string) []string {
	ext := ".so"
	if runtime.GOOS == "darwin" {
		ext = ".dylib"
	}
	var files []string
	for _, base := range []string{"libleptonica", "liblept"} {
		if dir != "" {
			files = append(files, filepath.Join(dir, base+ext))
		}
		files = append(files, base+ext)
	}
	return files
}

// Load opens libtesseract from dir and resolves every entry point the
// recognizer calls. Missing required symbols fail the load.
func Load(dir string) (*Library, error) {
	log := logger.WithComponent("tesseract")
	path := LibraryFile(dir)

	if dir != "" {
		if _, err := os.Stat(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Native library not found")
			return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
		}
	}

	log.Debug().Str("path", path).Msg("Loading native library")
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open native library")
		return nil, fmt.Errorf("%w: %s: %v", ErrLibraryNotFound, path, err)
	}

	lib := &Library{
		path:   path,
		handle: handle,
		log:    log,
		pinned: make(map[Handle]*runtime.Pinner),
	}

	required := []struct {
		fptr any
		name string
	}{
		{&lib.create, "TessBaseAPICreate"},
		{&lib.init2, "TessBaseAPIInit2"},
		{&lib.setImage, "TessBaseAPISetImage"},
		{&lib.getUTF8Text, "TessBaseAPIGetUTF8Text"},
		{&lib.deleteAPI, "TessBaseAPIDelete"},
	}
	for _, fn := range required {
		if err := lib.register(handle, fn.fptr, fn.name); err != nil {
			purego.Dlclose(handle)
			log.Error().Err(err).Str("path", path).Msg("Native library is missing an entry point")
			return nil, err
		}
	}

	// Optional entry points degrade single features rather than the whole library.
	_ = lib.register(handle, &lib.tessVersion, "TessVersion")
	_ = lib.register(handle, &lib.deleteText, "TessDeleteText")
	_ = lib.register(handle, &lib.setImage2, "TessBaseAPISetImage2")
	_ = lib.register(handle, &lib.setInputName, "TessBaseAPISetInputName")
	lib.loadLeptonica(dir)

	log.Debug().
		Str("path", path).
		Str("version", lib.Version()).
		Bool("file_mode", lib.SupportsFiles()).
		Msg("Native library loaded")
	return lib, nil
}

func (l *Library) register(handle uintptr, fptr any, name string) error {
	sym, err := purego.Dlsym(handle, name)
	if err != nil || sym == 0 {
		return fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

// loadLeptonica resolves the image reader used by ProcessPages. libtesseract
// links leptonica, so the symbols are usually visible through its handle.
func (l *Library) loadLeptonica(dir string) {
	if l.register(l.handle, &l.pixRead, "pixRead") == nil &&
		l.register(l.handle, &l.pixDestroy, "pixDestroy") == nil {
		return
	}
	for _, file := range leptonicaFiles(dir) {
		lept, err := purego.Dlopen(file, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			continue
		}
		if l.register(lept, &l.pixRead, "pixRead") == nil &&
			l.register(lept, &l.pixDestroy, "pixDestroy") == nil {
			l.lept = lept
			return
		}
		purego.Dlclose(lept)
	}
	l.pixRead, l.pixDestroy = nil, nil
	l.log.Warn().Str("path", l.path).Msg("Leptonica not available, file recognition disabled")
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Version reports the libtesseract version string, or "" when unavailable.
func (l *Library) Version() string {
	if l.tessVersion == nil {
		return ""
	}
	return string(BytesAt(l.tessVersion()))
}

// SupportsFiles reports whether ProcessPages can read image files.
func (l *Library) SupportsFiles() bool {
	return l.pixRead != nil && l.pixDestroy != nil && l.setImage2 != nil
}

func (l *Library) Create() Handle {
	return Handle(l.create())
}

func (l *Library) Init(h Handle, dataDir, language string, mode EngineMode) int {
	return int(l.init2(uintptr(h), dataDir, language, int32(mode)))
}

// SetImage pins data until the next GetUTF8Text on h returns, since the
// engine reads it during recognition rather than during this call.
func (l *Library) SetImage(h Handle, data []byte, width, height, bytesPerPixel, bytesPerLine int) {
	if len(data) == 0 {
		return
	}
	pinner := &runtime.Pinner{}
	pinner.Pin(&data[0])

	l.mu.Lock()
	if prev, ok := l.pinned[h]; ok {
		prev.Unpin()
	}
	l.pinned[h] = pinner
	l.mu.Unlock()

	l.setImage(uintptr(h), &data[0], int32(width), int32(height), int32(bytesPerPixel), int32(bytesPerLine))
}

func (l *Library) GetUTF8Text(h Handle) *byte {
	text := l.getUTF8Text(uintptr(h))
	l.unpin(h)
	return text
}

// ProcessPages reads path with leptonica and recognizes it. Returns nil when
// the file cannot be read or the library lacks file support.
func (l *Library) ProcessPages(h Handle, path string) *byte {
	if !l.SupportsFiles() {
		l.log.Error().Str("file", path).Msg("File recognition is not supported by this library")
		return nil
	}
	pix := l.pixRead(path)
	if pix == 0 {
		l.log.Error().Str("file", path).Msg("Leptonica could not read image")
		return nil
	}
	defer l.pixDestroy(&pix)

	if l.setInputName != nil {
		l.setInputName(uintptr(h), path)
	}
	l.setImage2(uintptr(h), pix)
	return l.getUTF8Text(uintptr(h))
}

func (l *Library) DeleteText(text *byte) {
	if text == nil || l.deleteText == nil {
		return
	}
	l.deleteText(text)
}

func (l *Library) Delete(h Handle) {
	l.unpin(h)
	l.deleteAPI(uintptr(h))
}

func (l *Library) unpin(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pinner, ok := l.pinned[h]; ok {
		pinner.Unpin()
		delete(l.pinned, h)
	}
}

// Close unloads the shared libraries. Handles created from l must be deleted first.
func (l *Library) Close() error {
	if l.lept != 0 {
		if err := purego.Dlclose(l.lept); err != nil {
			return err
		}
		l.lept = 0
	}
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

// BytesAt copies the nul-terminated byte string starting at p.
// A nil p yields nil.
func BytesAt(p *byte) []byte {
	if p == nil {
		return nil
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice(p, n))
	return out
}
