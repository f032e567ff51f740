package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tessocr/internal/config"
	"tessocr/internal/logger"
	"tessocr/internal/ocr"
	"tessocr/internal/pixel"
	"tessocr/internal/source"
	"tessocr/internal/tesseract"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Extract text from an image using libtesseract",
	Long: `Recognize the text in a single image with the tesseract C API.

Two input modes are available and exactly one must be given:

  --image-url   The image is fetched (http, https or file URL) and decoded
                in-process. Images narrower than --min-width are scaled up
                before recognition. Line breaks are preserved.

  --image-path  The path is handed to tesseract, which reads the file
                itself. Line breaks are removed from the result.

Required settings may come from flags or the environment:
  TESS_LANG        - tesseract language code (--lang)
  TESS_LIB_PATH    - directory containing libtesseract.so (--lib-path)
  TESSDATA_PREFIX  - tessdata directory with language packs (--tessdata)`,
	Example: `  # Recognize a remote price tag
  tessocr ocr -l eng -b /usr/local/lib -d /usr/local/share/tessdata \
    -i https://example.com/price.png

  # Let tesseract read a local file
  tessocr ocr -l eng -b /usr/local/lib -d /usr/local/share/tessdata -p scan.png

  # Upscale small images to 300px and write JSON with metadata
  tessocr ocr -i https://example.com/tag.png -m 300 --json -o result.json`,
	Args: cobra.NoArgs,
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	Mode               ocr.Mode  `json:"mode"`
	Source             string    `json:"source"`
	Language           string    `json:"language"`
	Width              int       `json:"width,omitempty"`
	Height             int       `json:"height,omitempty"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	RequestID          string    `json:"request_id"`
}

// nativeLibrary is a loaded tesseract library.
type nativeLibrary interface {
	tesseract.Native
	io.Closer
}

// loadNative opens libtesseract; tests replace it with a fake.
var loadNative = func(dir string) (nativeLibrary, error) {
	lib, err := tesseract.Load(dir)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func init() {
	rootCmd.AddCommand(ocrCmd)
	addOCRFlags(ocrCmd)
}

func addOCRFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("lang", "l", "", "Target language, e.g. eng or chi_sim (env TESS_LANG)")
	cmd.Flags().StringP("lib-path", "b", "", "Directory containing libtesseract (env TESS_LIB_PATH)")
	cmd.Flags().StringP("tessdata", "d", "", "Tessdata directory containing language packs (env TESSDATA_PREFIX)")
	cmd.Flags().StringP("image-url", "i", "", "URL of the image to recognize")
	cmd.Flags().StringP("image-path", "p", "", "Local image file handed directly to tesseract")
	cmd.Flags().IntP("min-width", "m", pixel.DefaultMinWidth, "Minimum width before recognition; narrower images are upscaled (env OCR_MIN_WIDTH)")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Bool("metadata", false, "Include metadata in output")
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Int("timeout", 0, "Image download timeout in seconds (env OCR_FETCH_TIMEOUT)")

	cmd.MarkFlagsMutuallyExclusive("image-url", "image-path")
	cmd.MarkFlagsOneRequired("image-url", "image-path")
}

// ocrOptions is the resolved command configuration.
type ocrOptions struct {
	cfg             config.Config
	imageURL        string
	imagePath       string
	outputPath      string
	jsonOutput      bool
	includeMetadata bool
}

func resolveOCROptions(cmd *cobra.Command, base *config.Config) (*ocrOptions, error) {
	opts := &ocrOptions{cfg: *base}
	flags := cmd.Flags()

	if v, _ := flags.GetString("lang"); v != "" {
		opts.cfg.Language = v
	}
	if v, _ := flags.GetString("lib-path"); v != "" {
		opts.cfg.LibPath = v
	}
	if v, _ := flags.GetString("tessdata"); v != "" {
		opts.cfg.TessdataDir = v
	}
	if flags.Changed("min-width") {
		opts.cfg.MinWidth, _ = flags.GetInt("min-width")
	}
	if flags.Changed("timeout") {
		secs, _ := flags.GetInt("timeout")
		opts.cfg.FetchTimeout = time.Duration(secs) * time.Second
	}

	opts.imageURL, _ = flags.GetString("image-url")
	opts.imagePath, _ = flags.GetString("image-path")
	opts.outputPath, _ = flags.GetString("output")
	opts.jsonOutput, _ = flags.GetBool("json")
	opts.includeMetadata, _ = flags.GetBool("metadata")

	if err := opts.cfg.ValidateOCR(); err != nil {
		return nil, err
	}
	if (opts.imageURL == "") == (opts.imagePath == "") {
		return nil, fmt.Errorf("exactly one of --image-url or --image-path is required")
	}
	return opts, nil
}

func runOCR(cmd *cobra.Command, args []string) error {
	requestID := uuid.NewString()
	log := logger.WithRequestID(requestID).With().Str("component", "ocr").Logger()

	opts, err := resolveOCROptions(cmd, appConfig)
	if err != nil {
		log.Error().Err(err).Msg("Invalid OCR options")
		return err
	}

	log.Info().
		Str("lang", opts.cfg.Language).
		Str("lib_path", opts.cfg.LibPath).
		Str("tessdata", opts.cfg.TessdataDir).
		Str("image_url", opts.imageURL).
		Str("image_path", opts.imagePath).
		Int("min_width", opts.cfg.MinWidth).
		Msg("Starting OCR processing")

	engine, closeEngine, err := createEngine(opts.cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine()
	log.Debug().Str("language", engine.Language()).Msg("Engine ready")

	var result *ocr.OCRResult
	src := opts.imageURL
	if opts.imagePath != "" {
		src = opts.imagePath
		result, err = engine.RecognizeFile(opts.imagePath)
	} else {
		// The download budget starts once the engine is initialized.
		ctx, cancel := createContextWithTimeout(opts.cfg.FetchTimeout, log)
		defer cancel()

		loader := &cancelAfterLoad{
			loader: source.NewFetcher(&http.Client{Timeout: opts.cfg.FetchTimeout}),
			cancel: cancel,
		}
		result, err = engine.RecognizeURL(ctx, loader, opts.imageURL, opts.cfg.MinWidth)
	}
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Str("mode", string(result.Mode)).
		Int("width", result.Width).
		Int("height", result.Height).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	return outputResults(cmd.OutOrStdout(), result, src, requestID, opts, log)
}

// createContextWithTimeout creates a context with timeout and signal handling.
// Calling the returned cancel func also uninstalls the signal handler, so
// signals received afterwards terminate the process as usual.
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling image download")
			cancel()
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			cancel()
		})
	}
}

// cancelAfterLoad releases the download context and its signal handler as
// soon as the image is loaded, before the blocking native recognition starts.
type cancelAfterLoad struct {
	loader ocr.ImageLoader
	cancel context.CancelFunc
}

func (c *cancelAfterLoad) Load(ctx context.Context, ref string) (image.Image, error) {
	defer c.cancel()
	return c.loader.Load(ctx, ref)
}

// createEngine loads the native library and initializes an engine on it.
// The returned func closes the engine before unloading the library.
func createEngine(cfg config.Config, log zerolog.Logger) (*ocr.Engine, func(), error) {
	lib, err := loadNative(cfg.LibPath)
	if err != nil {
		log.Error().Err(err).Str("lib_path", cfg.LibPath).Msg("Failed to load libtesseract")
		return nil, nil, fmt.Errorf("failed to load libtesseract from %s: %w", cfg.LibPath, err)
	}

	engine, err := ocr.New(lib, ocr.EngineConfig{
		DataDir:  cfg.TessdataDir,
		Language: cfg.Language,
	})
	if err != nil {
		lib.Close()
		log.Error().Err(err).Msg("Could not initialize tesseract")
		return nil, nil, fmt.Errorf("could not initialize tesseract with language %q from %s: %w",
			cfg.Language, cfg.TessdataDir, err)
	}

	closeAll := func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close engine")
		}
		if err := lib.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to unload libtesseract")
		}
	}
	log.Debug().Msg("OCR engine created successfully")
	return engine, closeAll, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("image download timed out. Try increasing --timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled: %w", err)
	case errors.Is(err, source.ErrUnsupportedScheme):
		return fmt.Errorf("unsupported image URL. Use http, https or file URLs: %w", err)
	case errors.Is(err, source.ErrTooLarge):
		return fmt.Errorf("image is too large (maximum %d bytes): %w", source.MaxImageBytes, err)
	case errors.Is(err, pixel.ErrImageTooLarge):
		return fmt.Errorf("image is too large to recognize (maximum %d pixels after scaling). Try a smaller --min-width: %w", pixel.MaxPixels, err)
	case errors.Is(err, source.ErrDecode):
		return fmt.Errorf("image could not be decoded. Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP: %w", err)
	case errors.Is(err, ocr.ErrSource):
		return fmt.Errorf("image could not be retrieved: %w", err)
	case errors.Is(err, ocr.ErrEmptyResult):
		return fmt.Errorf("tesseract returned no text. The file may be unreadable or not an image: %w", err)
	case errors.Is(err, ocr.ErrInvalidEncoding):
		return fmt.Errorf("tesseract returned text that is not valid UTF-8: %w", err)
	case errors.Is(err, ocr.ErrBuffer):
		return fmt.Errorf("internal error packing image pixels: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// outputResults formats and outputs the OCR results
func outputResults(stdout io.Writer, result *ocr.OCRResult, src, requestID string, opts *ocrOptions, log zerolog.Logger) error {
	var output strings.Builder
	var outputData []byte
	var err error

	if opts.jsonOutput {
		ocrOutput := OCROutput{
			Text:               result.Text,
			Mode:               result.Mode,
			Source:             src,
			Language:           result.Language,
			Width:              result.Width,
			Height:             result.Height,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			RequestID:          requestID,
		}

		outputData, err = json.MarshalIndent(ocrOutput, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = append(outputData, '\n')
	} else {
		if opts.includeMetadata {
			output.WriteString(fmt.Sprintf("=== OCR Results for %s ===\n", src))
			output.WriteString(fmt.Sprintf("Mode: %s\n", result.Mode))
			output.WriteString(fmt.Sprintf("Language: %s\n", result.Language))
			if result.Width > 0 {
				output.WriteString(fmt.Sprintf("Recognized size: %dx%d\n", result.Width, result.Height))
			}
			output.WriteString(fmt.Sprintf("Processing time: %v\n", result.ProcessingDuration))
			output.WriteString(fmt.Sprintf("Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339)))
			output.WriteString("\n=== Extracted Text ===\n\n")
		}

		output.WriteString(result.Text)
		if !strings.HasSuffix(result.Text, "\n") {
			output.WriteString("\n")
		}
		outputData = []byte(output.String())
	}

	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, outputData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", opts.outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", opts.outputPath).
			Int("bytes", len(outputData)).
			Msg("OCR results written to file")
		return nil
	}

	if _, err := stdout.Write(outputData); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
