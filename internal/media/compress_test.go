// Package media provides unit tests for photo compression.
package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func noiseImage(w, h int) *image.RGBA {
	r := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// TestCompress_largePhoto verifies a camera-sized photo is scaled to the
// dimension ceiling and lands within the budget.
func TestCompress_largePhoto(t *testing.T) {
	input := encodeTestJPEG(t, gradientImage(5000, 3000))

	out, err := NewCompressor().Compress(input, 1)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if out.Width != 1920 || out.Height != 1152 {
		t.Errorf("dimensions = %dx%d, want 1920x1152", out.Width, out.Height)
	}
	if out.EstimatedSize() > 1024*1024 {
		t.Errorf("estimated size %d exceeds 1 MB", out.EstimatedSize())
	}
	if out.SourceType != "jpeg" {
		t.Errorf("SourceType = %q, want jpeg", out.SourceType)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 1920 || b.Dy() != 1152 {
		t.Errorf("decoded bounds = %v", b)
	}
}

// TestCompress_portrait verifies the taller side is the one capped.
func TestCompress_portrait(t *testing.T) {
	input := encodeTestJPEG(t, gradientImage(1000, 4000))

	out, err := NewCompressor().Compress(input, 1)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if out.Height != 1920 || out.Width != 480 {
		t.Errorf("dimensions = %dx%d, want 480x1920", out.Width, out.Height)
	}
}

// TestCompress_smallPhotoKeepsSize verifies images within the ceiling are not rescaled.
func TestCompress_smallPhotoKeepsSize(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradientImage(640, 480)); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}

	out, err := NewCompressor().Compress(buf.Bytes(), 1)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if out.Width != 640 || out.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", out.Width, out.Height)
	}
	if out.Attempts != 1 || out.Quality != InitialQuality {
		t.Errorf("attempts=%d quality=%d, want 1 and %d", out.Attempts, out.Quality, InitialQuality)
	}
	if out.SourceType != "png" {
		t.Errorf("SourceType = %q, want png", out.SourceType)
	}
	if ct := DetectContentType(out.Data); ct != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", ct)
	}
}

// TestCompress_secondPass verifies an over-budget first encode triggers
// exactly one lower-quality retry that respects the quality floor.
func TestCompress_secondPass(t *testing.T) {
	input := encodeTestJPEG(t, noiseImage(800, 600))

	out, err := NewCompressor().Compress(input, 0.01)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if out.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", out.Attempts)
	}
	if out.Quality != MinQuality {
		t.Errorf("Quality = %d, want floor %d", out.Quality, MinQuality)
	}
	// Noise does not compress to 10 KB; the result is returned regardless.
	if out.EstimatedSize() <= 10*1024 {
		t.Logf("unexpectedly met budget: %d bytes", out.EstimatedSize())
	}
}

// TestCompress_decodeFault verifies malformed input is reported as DECODE_FAULT.
func TestCompress_decodeFault(t *testing.T) {
	c := NewCompressor()

	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": encodeTestJPEG(t, gradientImage(64, 64))[:40],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compress(data, 1)
			if !errors.Is(err, errors.ErrDecodeFault) {
				t.Errorf("err = %v, want DECODE_FAULT", err)
			}
		})
	}
}

// TestCompress_invalidBudget verifies a non-positive budget is rejected.
func TestCompress_invalidBudget(t *testing.T) {
	_, err := NewCompressor().Compress(encodeTestJPEG(t, gradientImage(8, 8)), 0)
	if !errors.Is(err, errors.ErrInvalid) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

// TestEstimatedSize verifies the base64 accounting.
func TestEstimatedSize(t *testing.T) {
	tests := []struct {
		n    int
		want int64
	}{
		{0, 0},
		{1, 3},
		{3, 3},
		{4, 6},
		{1024 * 1024, 1048578},
	}
	for _, tt := range tests {
		if got := EstimatedSize(tt.n); got != tt.want {
			t.Errorf("EstimatedSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
