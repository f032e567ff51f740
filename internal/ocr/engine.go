package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tessocr/internal/logger"
	"tessocr/internal/pixel"
	"tessocr/internal/tesseract"
)

// EngineConfig selects the language pack an Engine is initialized with.
type EngineConfig struct {
	// DataDir is the tessdata directory holding <Language>.traineddata.
	DataDir string

	// Language is a tesseract language code such as "eng" or "chi_sim+eng".
	Language string
}

// engineMode is the only recognition mode engines are initialized with.
const engineMode = tesseract.OEMTesseractLSTMCombined

// Engine owns one initialized tesseract handle.
type Engine struct {
	mu     sync.Mutex
	native tesseract.Native
	handle tesseract.Handle
	cfg    EngineConfig
	closed bool
	log    zerolog.Logger
}

var _ Service = (*Engine)(nil)

// New creates and initializes a tesseract handle through native. When
// initialization fails the handle is deleted before the error is returned.
func New(native tesseract.Native, cfg EngineConfig) (*Engine, error) {
	const op = "New"
	log := logger.WithComponent("ocr").With().
		Str("language", cfg.Language).
		Str("tessdata", cfg.DataDir).
		Logger()

	if cfg.Language == "" {
		return nil, NewOCRError(op, ErrInit, "language is required")
	}

	handle := native.Create()
	if handle == 0 {
		log.Error().Msg("Native engine returned a null handle")
		return nil, NewOCRError(op, ErrInit, "create returned a null handle")
	}

	if rc := native.Init(handle, cfg.DataDir, cfg.Language, engineMode); rc != 0 {
		native.Delete(handle)
		log.Error().Int("status", rc).Msg("Could not initialize tesseract")
		return nil, NewOCRError(op, ErrInit, fmt.Sprintf("status %d for language %q in %q", rc, cfg.Language, cfg.DataDir))
	}

	log.Debug().Str("mode", engineMode.String()).Msg("Engine initialized")
	return &Engine{
		native: native,
		handle: handle,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Language returns the language code the engine was initialized with.
func (e *Engine) Language() string {
	return e.cfg.Language
}

// live must be called with e.mu held.
func (e *Engine) live(op string) error {
	if e.closed {
		return NewOCRError(op, ErrEngineClosed, "")
	}
	if e.handle == 0 || e.native == nil {
		return NewOCRError(op, ErrNotInitialized, "")
	}
	return nil
}

// takeText copies the engine's string and then releases it.
func (e *Engine) takeText(p *byte) (string, error) {
	text, err := textFromPointer(p)
	e.native.DeleteText(p)
	return text, err
}

// FileToText extracts text from the image file at path with newlines removed.
func (e *Engine) FileToText(path string) (string, error) {
	result, err := e.RecognizeFile(path)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// RecognizeFile extracts text from the image file at path with metadata.
func (e *Engine) RecognizeFile(path string) (*OCRResult, error) {
	const op = "RecognizeFile"
	startTime := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.live(op); err != nil {
		return nil, err
	}

	e.log.Debug().Str("file", path).Msg("Recognizing file")
	text, err := e.takeText(e.native.ProcessPages(e.handle, path))
	if err != nil {
		e.log.Error().Err(err).Str("file", path).Msg("File recognition failed")
		return nil, WrapOCRError(op, err, path)
	}

	result := &OCRResult{
		Text:     strings.ReplaceAll(text, "\n", ""),
		Mode:     ModeFile,
		Language: e.cfg.Language,
	}
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)
	return result, nil
}

// ImageToText extracts text from img, keeping the engine's newlines.
func (e *Engine) ImageToText(img image.Image, minWidth int) (string, error) {
	result, err := e.RecognizeImage(img, minWidth)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// RecognizeImage packs img, upscaled to minWidth when narrower, and
// extracts its text with metadata.
func (e *Engine) RecognizeImage(img image.Image, minWidth int) (*OCRResult, error) {
	const op = "RecognizeImage"
	startTime := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.live(op); err != nil {
		return nil, err
	}

	buf, err := pixel.Build(img, minWidth)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to pack image")
		kind := ErrBuffer
		if errors.Is(err, pixel.ErrEmptyImage) || errors.Is(err, pixel.ErrImageTooLarge) {
			kind = ErrSource
		}
		return nil, NewOCRError(op, fmt.Errorf("%w: %w", kind, err), "")
	}

	text, err := e.recognizeBuffer(buf)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("%dx%d image", buf.Width, buf.Height))
	}

	result := &OCRResult{
		Text:     text,
		Mode:     ModeImage,
		Width:    buf.Width,
		Height:   buf.Height,
		Language: e.cfg.Language,
	}
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)
	return result, nil
}

// RecognizeBuffer extracts text from an already packed buffer.
func (e *Engine) RecognizeBuffer(buf *pixel.Buffer) (string, error) {
	const op = "RecognizeBuffer"

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.live(op); err != nil {
		return "", err
	}

	text, err := e.recognizeBuffer(buf)
	if err != nil {
		return "", WrapOCRError(op, err, "")
	}
	return text, nil
}

// recognizeBuffer must be called with e.mu held.
func (e *Engine) recognizeBuffer(buf *pixel.Buffer) (string, error) {
	if err := buf.Validate(); err != nil {
		e.log.Error().Err(err).Msg("Refusing to pass malformed buffer to native engine")
		return "", fmt.Errorf("%w: %w", ErrBuffer, err)
	}

	e.log.Debug().
		Int("width", buf.Width).
		Int("height", buf.Height).
		Int("stride", buf.Stride).
		Msg("Recognizing image buffer")

	e.native.SetImage(e.handle, buf.Data, buf.Width, buf.Height, buf.Channels, buf.Stride)
	text, err := e.takeText(e.native.GetUTF8Text(e.handle))
	runtime.KeepAlive(buf.Data)
	if err != nil {
		e.log.Error().Err(err).Msg("Image recognition failed")
		return "", err
	}
	return text, nil
}

// URLToText loads ref and extracts its text, keeping the engine's newlines.
func (e *Engine) URLToText(ctx context.Context, loader ImageLoader, ref string, minWidth int) (string, error) {
	result, err := e.RecognizeURL(ctx, loader, ref, minWidth)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// RecognizeURL loads ref through loader and recognizes it in image mode.
// Loading happens before the engine lock is taken.
func (e *Engine) RecognizeURL(ctx context.Context, loader ImageLoader, ref string, minWidth int) (*OCRResult, error) {
	const op = "RecognizeURL"

	e.mu.Lock()
	err := e.live(op)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	img, err := loader.Load(ctx, ref)
	if err != nil {
		e.log.Error().Err(err).Str("source", ref).Msg("Failed to load image")
		return nil, NewOCRError(op, fmt.Errorf("%w: %w", ErrSource, err), ref)
	}
	return e.RecognizeImage(img, minWidth)
}

// Close deletes the native handle. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.handle != 0 && e.native != nil {
		e.native.Delete(e.handle)
		e.log.Debug().Msg("Engine destroyed")
	}
	e.handle = 0
	return nil
}
