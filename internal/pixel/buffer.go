// Package pixel packs decoded images into the raw RGBA layout libtesseract's
// SetImage expects: row-major, 4 bytes per pixel, no row padding.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	// Channels is the number of bytes per packed pixel (R, G, B, A).
	Channels = 4

	// DefaultMinWidth is the narrowest image handed to the recognizer.
	// Narrower images are scaled up, keeping the aspect ratio.
	DefaultMinWidth = 150

	// MaxMinWidth is the largest accepted minimum width.
	MaxMinWidth = 10000

	// MaxPixels caps the packed image area (256 MiB of RGBA).
	MaxPixels = 64 << 20
)

var (
	// ErrBufferSize is returned when packed data does not match its declared geometry.
	ErrBufferSize = errors.New("pixel buffer size does not match its geometry")

	// ErrEmptyImage is returned for images with no pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrImageTooLarge is returned when the packed image would exceed MaxPixels.
	ErrImageTooLarge = errors.New("image exceeds maximum pixel count")
)

// BufferError describes a buffer whose geometry and data disagree.
type BufferError struct {
	Width  int
	Height int
	Stride int
	Len    int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("pixel buffer %dx%d stride %d: have %d bytes, want %d",
		e.Width, e.Height, e.Stride, e.Len, e.Height*e.Stride)
}

func (e *BufferError) Unwrap() error {
	return ErrBufferSize
}

// Buffer is a packed RGBA image ready for the native recognizer.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Stride   int
	Data     []byte
}

// Validate checks the invariants the native call relies on.
func (b *Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 || b.Channels != Channels ||
		b.Stride != b.Width*b.Channels || len(b.Data) != b.Height*b.Stride {
		return &BufferError{Width: b.Width, Height: b.Height, Stride: b.Stride, Len: len(b.Data)}
	}
	return nil
}

// TargetSize returns the dimensions an image of width x height is packed at.
// Images narrower than minWidth are scaled to exactly minWidth wide.
func TargetSize(width, height, minWidth int) (int, int) {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	if width >= minWidth {
		return width, height
	}
	ratio := float64(minWidth) / float64(width)
	scaled := math.Round(float64(height) * ratio)
	if scaled > math.MaxInt32 {
		return minWidth, math.MaxInt32
	}
	newHeight := int(scaled)
	if newHeight < 1 {
		newHeight = 1
	}
	return minWidth, newHeight
}

// Build converts img to non-premultiplied RGBA, upscaling it first when it is
// narrower than minWidth (DefaultMinWidth when minWidth <= 0).
func Build(img image.Image, minWidth int) (*Buffer, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	width, height := TargetSize(bounds.Dx(), bounds.Dy(), minWidth)
	if float64(width)*float64(height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d is more than %d pixels", ErrImageTooLarge, width, height, MaxPixels)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	}

	buf := &Buffer{
		Width:    width,
		Height:   height,
		Channels: Channels,
		Stride:   width * Channels,
	}
	buf.Data = make([]byte, height*buf.Stride)
	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+buf.Stride]
		copy(buf.Data[y*buf.Stride:], row)
	}

	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return buf, nil
}
