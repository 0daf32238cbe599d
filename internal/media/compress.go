// Package media provides bounded-size re-encoding of captured photos.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/webp"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
)

const (
	// MaxDimension is the pixel ceiling for either side of a compressed photo.
	MaxDimension = 1920
	// InitialQuality is the JPEG quality of the first encode (0.8).
	InitialQuality = 80
	// MinQuality is the floor for the second encode (0.3).
	MinQuality = 30

	bytesPerMB = 1024 * 1024
)

// Compressed is the result of Compress.
type Compressed struct {
	Data       []byte
	Width      int
	Height     int
	Quality    int
	Attempts   int
	SourceType string // decoder name of the input: jpeg, png, gif, webp
}

// EstimatedSize returns the size the payload is accounted at: its base64
// length scaled back by 3/4, the way the capture UI measures data URLs.
func (c *Compressed) EstimatedSize() int64 {
	return EstimatedSize(len(c.Data))
}

// Compressor downsizes and re-encodes images to a byte budget.
//
// At most two encodes are performed: one at InitialQuality and, if the result
// is still over budget, one at a quality lowered in proportion to the
// overshoot (never below MinQuality). The result is not guaranteed to fit the
// budget; bounded latency per photo is preferred over convergence.
type Compressor struct {
	maxDimension   int
	initialQuality int
	minQuality     int
}

// NewCompressor creates a Compressor with the default limits.
func NewCompressor() *Compressor {
	return &Compressor{
		maxDimension:   MaxDimension,
		initialQuality: InitialQuality,
		minQuality:     MinQuality,
	}
}

// EstimatedSize converts an encoded length to its data-URL accounted size.
func EstimatedSize(n int) int64 {
	return int64(base64.StdEncoding.EncodedLen(n)) * 3 / 4
}

// Compress decodes data, scales it so neither side exceeds the dimension
// ceiling, and re-encodes it as JPEG aiming for at most maxSizeMB.
// Malformed input fails with a DECODE_FAULT error.
func (c *Compressor) Compress(data []byte, maxSizeMB float64) (*Compressed, error) {
	if maxSizeMB <= 0 {
		return nil, errors.New(errors.ErrInvalid, fmt.Sprintf("invalid size budget %.2f MB", maxSizeMB))
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrDecodeFault, "empty image payload")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecodeFault, "failed to decode image", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecodeFault, "failed to decode image", err)
	}

	img = c.fit(img)
	budget := int64(maxSizeMB * bytesPerMB)

	out, err := encodeJPEG(img, c.initialQuality)
	if err != nil {
		return nil, err
	}
	result := &Compressed{
		Data:       out,
		Quality:    c.initialQuality,
		Attempts:   1,
		SourceType: format,
	}

	if size := EstimatedSize(len(out)); size > budget {
		quality := int(float64(c.initialQuality) * float64(budget) / float64(size))
		if quality < c.minQuality {
			quality = c.minQuality
		}
		out, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		result.Data = out
		result.Quality = quality
		result.Attempts = 2
	}

	bounds := img.Bounds()
	result.Width = bounds.Dx()
	result.Height = bounds.Dy()

	logging.Debug("Photo compressed", map[string]interface{}{
		"input":    humanize.Bytes(uint64(len(data))),
		"output":   humanize.Bytes(uint64(len(result.Data))),
		"width":    result.Width,
		"height":   result.Height,
		"quality":  result.Quality,
		"attempts": result.Attempts,
	})

	return result, nil
}

// fit scales img down so its larger side equals the ceiling. Images already
// within the ceiling are returned unchanged.
func (c *Compressor) fit(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= c.maxDimension && bounds.Dy() <= c.maxDimension {
		return img
	}
	return imaging.Fit(img, c.maxDimension, c.maxDimension, imaging.Lanczos)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, errors.Wrap(errors.ErrEncodeFault, "failed to encode image", err)
	}
	return buf.Bytes(), nil
}
