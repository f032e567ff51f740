package pixel

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestBuildUpscalesNarrowImage(t *testing.T) {
	buf, err := Build(solid(100, 40, color.NRGBA{255, 255, 255, 255}), 150)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if buf.Width != 150 || buf.Height != 60 {
		t.Fatalf("Build() size = %dx%d, want 150x60", buf.Width, buf.Height)
	}
	if buf.Stride != 600 {
		t.Fatalf("Build() stride = %d, want 600", buf.Stride)
	}
	if len(buf.Data) != 36000 {
		t.Fatalf("Build() len = %d, want 36000", len(buf.Data))
	}
	if buf.Channels != Channels {
		t.Fatalf("Build() channels = %d, want %d", buf.Channels, Channels)
	}
}

func TestBuildKeepsWideImage(t *testing.T) {
	tests := []struct {
		w, h, minWidth int
	}{
		{150, 20, 150},
		{640, 480, 150},
		{151, 1, 150},
		{300, 7, 0},
	}
	for _, tt := range tests {
		buf, err := Build(solid(tt.w, tt.h, color.NRGBA{0, 0, 0, 255}), tt.minWidth)
		if err != nil {
			t.Fatalf("Build(%dx%d) error = %v", tt.w, tt.h, err)
		}
		if buf.Width != tt.w || buf.Height != tt.h {
			t.Fatalf("Build(%dx%d) resized to %dx%d", tt.w, tt.h, buf.Width, buf.Height)
		}
		if len(buf.Data) != tt.w*tt.h*4 {
			t.Fatalf("Build(%dx%d) len = %d", tt.w, tt.h, len(buf.Data))
		}
	}
}

func TestTargetSizePreservesAspect(t *testing.T) {
	for w := 1; w < 150; w += 7 {
		for _, h := range []int{1, 3, 40, 99, 333} {
			gotW, gotH := TargetSize(w, h, 150)
			if gotW != 150 {
				t.Fatalf("TargetSize(%d, %d) width = %d, want 150", w, h, gotW)
			}
			want := float64(h) * 150 / float64(w)
			if math.Abs(float64(gotH)-want) > 1 {
				t.Fatalf("TargetSize(%d, %d) height = %d, want ~%.2f", w, h, gotH, want)
			}
		}
	}
}

func TestTargetSizeDefaultMinWidth(t *testing.T) {
	if w, h := TargetSize(75, 10, 0); w != DefaultMinWidth || h != 20 {
		t.Fatalf("TargetSize(75, 10, 0) = %dx%d, want %dx20", w, h, DefaultMinWidth)
	}
}

func TestBuildPacksRowMajorRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 255})
	img.SetNRGBA(1, 0, color.NRGBA{4, 5, 6, 255})
	img.SetNRGBA(0, 1, color.NRGBA{7, 8, 9, 255})
	img.SetNRGBA(1, 1, color.NRGBA{10, 11, 12, 128})

	buf, err := Build(img, 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := []byte{
		1, 2, 3, 255, 4, 5, 6, 255,
		7, 8, 9, 255, 10, 11, 12, 128,
	}
	if string(buf.Data) != string(want) {
		t.Fatalf("Build() data = %v, want %v", buf.Data, want)
	}
}

func TestBuildHandlesOffsetBounds(t *testing.T) {
	src := solid(10, 10, color.NRGBA{9, 9, 9, 255})
	sub := src.SubImage(image.Rect(2, 3, 8, 9))

	buf, err := Build(sub, 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if buf.Width != 6 || buf.Height != 6 {
		t.Fatalf("Build() size = %dx%d, want 6x6", buf.Width, buf.Height)
	}
	for i, b := range buf.Data {
		if b != 9 && b != 255 {
			t.Fatalf("Build() byte %d = %d", i, b)
		}
	}
}

func TestBuildConvertsGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 160, 2))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	buf, err := Build(img, 150)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := buf.Data[:4]; got[0] != 200 || got[1] != 200 || got[2] != 200 || got[3] != 255 {
		t.Fatalf("Build() first pixel = %v", got)
	}
}

func TestBuildRejectsEmptyImage(t *testing.T) {
	_, err := Build(image.NewNRGBA(image.Rect(0, 0, 0, 5)), 150)
	if !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("Build() error = %v, want ErrEmptyImage", err)
	}
}

func TestValidateRejectsMismatch(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
	}{
		{"short data", Buffer{Width: 2, Height: 2, Channels: 4, Stride: 8, Data: make([]byte, 15)}},
		{"long data", Buffer{Width: 2, Height: 2, Channels: 4, Stride: 8, Data: make([]byte, 17)}},
		{"padded stride", Buffer{Width: 2, Height: 2, Channels: 4, Stride: 12, Data: make([]byte, 24)}},
		{"three channels", Buffer{Width: 2, Height: 2, Channels: 3, Stride: 6, Data: make([]byte, 12)}},
		{"zero width", Buffer{Width: 0, Height: 2, Channels: 4, Stride: 0, Data: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if !errors.Is(err, ErrBufferSize) {
				t.Fatalf("Validate() error = %v, want ErrBufferSize", err)
			}
			var bufErr *BufferError
			if !errors.As(err, &bufErr) || bufErr.Len != len(tt.buf.Data) {
				t.Fatalf("Validate() error = %#v, want *BufferError", err)
			}
		})
	}

	ok := Buffer{Width: 2, Height: 2, Channels: 4, Stride: 8, Data: make([]byte, 16)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() error = %v on consistent buffer", err)
	}
}

func TestBuildRejectsOversizedTarget(t *testing.T) {
	tests := []struct {
		name     string
		img      image.Image
		minWidth int
	}{
		{"huge min width", image.NewNRGBA(image.Rect(0, 0, 1, 1)), 1 << 31},
		{"tall sliver", image.NewNRGBA(image.Rect(0, 0, 1, 600000)), DefaultMinWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Build(tt.img, tt.minWidth)
			if !errors.Is(err, ErrImageTooLarge) {
				t.Fatalf("Build() = %v, %v; want ErrImageTooLarge", buf, err)
			}
		})
	}
}

func TestTargetSizeClampsOverflow(t *testing.T) {
	w, h := TargetSize(1, 1<<30, 1<<30)
	if w != 1<<30 || h != math.MaxInt32 {
		t.Fatalf("TargetSize() = %dx%d, want clamped height", w, h)
	}
}
