package internal

import (
	"bytes"
	"image"
	"image/jpeg"
)

// maxDimension caps the longest edge of an optimized image.
const maxDimension = 1280

// JPEGOptimizer shrinks frames before upload. Pass-through when the
// payload is already under the size cap; otherwise downscale and
// re-encode. Never fails: any internal error returns the input as-is.
type JPEGOptimizer struct {
	maxSizeKB int
	quality   int
	logger    *Logger
}

// NewJPEGOptimizer creates an optimizer targeting the given size cap
// and JPEG quality.
func NewJPEGOptimizer(maxSizeKB, quality int, logger *Logger) *JPEGOptimizer {
	return &JPEGOptimizer{maxSizeKB: maxSizeKB, quality: quality, logger: logger}
}

// Optimize implements the Optimizer interface.
func (o *JPEGOptimizer) Optimize(data []byte) []byte {
	sizeKB := len(data) / 1024
	if sizeKB <= o.maxSizeKB {
		return data
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("Optimization skipped, decode failed: %v", err)
		}
		return data
	}

	img = shrinkToFit(img, maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.quality}); err != nil {
		if o.logger != nil {
			o.logger.Warn("Optimization skipped, encode failed: %v", err)
		}
		return data
	}

	if o.logger != nil {
		o.logger.Debug("Compressed image: %dKB -> %dKB", sizeKB, buf.Len()/1024)
	}
	return buf.Bytes()
}

// shrinkToFit downscales an image so its longest edge is at most max,
// preserving aspect ratio. Images already small enough pass through.
func shrinkToFit(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= max {
		return img
	}

	nw := w * max / longest
	nh := h * max / longest
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}
