// Package thumbnail derives resized JPEG copies of stored originals on a
// bounded worker pool, decoupled from request handling.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG output quality used when none is configured.
const DefaultQuality = 85

// Generator decodes an original and re-encodes a derivative that fits
// within a bounding square, preserving aspect ratio.
type Generator struct {
	quality int
}

// NewGenerator creates a generator with the given JPEG quality (1-100).
// quality <= 0 selects the default.
func NewGenerator(quality int) *Generator {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Generator{quality: quality}
}

// Generate reads an image from r and returns JPEG bytes resized to fit
// within maxDimension on both axes. Images already smaller are re-encoded
// without upscaling.
func (g *Generator) Generate(r io.Reader, maxDimension int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode original: %w", err)
	}

	var thumb image.Image = img
	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		thumb = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
