// Package preview renders a low-resolution grayscale version of a frame.
//
// The transform is independent of the stream engine: it takes encoded image
// bytes and returns JPEG bytes. Frames that cannot be decoded are reported
// as errors; PixelateOrOriginal falls back to the input instead.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the formats a multipart camera may serve.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultSize is the side of the box the preview is fitted into.
const DefaultSize = 128

// DefaultQuality is the JPEG quality of the re-encoded preview.
const DefaultQuality = 75

// Options tunes Pixelate.
type Options struct {
	// Size is the bounding box side in pixels (default 128).
	Size int
	// Quality is the JPEG quality 1-100 (default 75).
	Quality int
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Pixelate decodes data, converts it to grayscale, scales it with nearest
// neighbour sampling to fit a DefaultSize box (aspect ratio kept) and
// re-encodes it as JPEG.
func Pixelate(data []byte) ([]byte, error) {
	return PixelateWith(data, Options{})
}

// PixelateWith is Pixelate with explicit options.
func PixelateWith(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := src.Bounds()
	w, h := Fit(bounds.Dx(), bounds.Dy(), opts.Size)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode frame: empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), gray, bounds, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out.Bytes(), nil
}

// PixelateOrOriginal returns the preview of data, or data itself when the
// frame cannot be transformed.
func PixelateOrOriginal(data []byte) []byte {
	out, err := Pixelate(data)
	if err != nil {
		return data
	}
	return out
}

// Fit scales (w, h) down or up to fit a box of the given side, keeping the
// aspect ratio. Each result side is at least 1 when the input is non-empty.
func Fit(w, h, box int) (int, int) {
	if w <= 0 || h <= 0 || box <= 0 {
		return 0, 0
	}
	if w >= h {
		return box, max(1, h*box/w)
	}
	return max(1, w*box/h), box
}
