// Package source retrieves and decodes the images handed to the recognizer.
//
// Remote images are read to completion over HTTP(S); local images are read
// from disk. Decoding honours EXIF orientation and understands PNG, JPEG, GIF,
// BMP, TIFF and WebP.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tessocr/internal/logger"
)

const (
	// MaxImageBytes caps how much of a remote image is read.
	MaxImageBytes = 32 << 20

	// DefaultTimeout bounds a single remote fetch when the caller's context has no deadline.
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrFetch is returned when a remote image cannot be retrieved.
	ErrFetch = errors.New("failed to fetch image")

	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("failed to decode image")

	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor file.
	ErrUnsupportedScheme = errors.New("unsupported image URL scheme")

	// ErrTooLarge is returned when a remote image exceeds MaxImageBytes.
	ErrTooLarge = errors.New("image exceeds maximum size")
)

// Fetcher retrieves images by URL.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	log      zerolog.Logger
}

// NewFetcher returns a Fetcher using client, or a client with DefaultTimeout when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{
		client:   client,
		maxBytes: MaxImageBytes,
		log:      logger.WithComponent("source"),
	}
}

// IsRemote reports whether ref names an http or https resource.
func IsRemote(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// LocalPath resolves a file:// URL or bare path to a filesystem path.
func LocalPath(ref string) (string, error) {
	if !strings.Contains(ref, "://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedScheme, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return u.Path, nil
}

// Fetch reads the whole body at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !IsRemote(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	f.log.Debug().Str("url", rawURL).Msg("Fetching image")
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Error().Err(err).Str("url", rawURL).Msg("Image request failed")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Error().Int("status", resp.StatusCode).Str("url", rawURL).Msg("Unexpected image response")
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	f.log.Debug().Str("url", rawURL).Int("bytes", len(data)).Msg("Image fetched")
	return data, nil
}

// Load returns the decoded image referenced by ref: an http(s) URL, a file
// URL, or a bare filesystem path.
func (f *Fetcher) Load(ctx context.Context, ref string) (image.Image, error) {
	if IsRemote(ref) {
		data, err := f.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		return Decode(bytes.NewReader(data))
	}

	path, err := LocalPath(ref)
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Decode decodes an image, applying its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Open decodes the image file at path.
func Open(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer file.Close()
	return Decode(file)
}
