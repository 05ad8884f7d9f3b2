package internal

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// uniformFrame builds a decodable frame filled with a single intensity.
func uniformFrame(name string, w, h int, fill uint8) *Frame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return NewFrame(name, nil, img)
}

// splitFrame fills the left half with one intensity and the right half
// with another.
func splitFrame(name string, w, h int, left, right uint8) *Frame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := left
			if x >= w/2 {
				v = right
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return NewFrame(name, nil, img)
}

func TestMotionGateBootstrap(t *testing.T) {
	mg := NewMotionGate(25, 0.5)

	hasMotion, percent := mg.Evaluate(uniformFrame("first.jpg", 64, 64, 128))

	assert.True(t, hasMotion)
	assert.InDelta(t, 100.0, percent, 0.001)
}

func TestMotionGateStaticScene(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 128))

	hasMotion, percent := mg.Evaluate(uniformFrame("f2.jpg", 64, 64, 128))

	assert.False(t, hasMotion)
	assert.InDelta(t, 0.0, percent, 0.001)
}

func TestMotionGateBelowThresholdChange(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 100))

	// Intensity shift of 10 stays under the pixel threshold of 25.
	hasMotion, percent := mg.Evaluate(uniformFrame("f2.jpg", 64, 64, 110))

	assert.False(t, hasMotion)
	assert.InDelta(t, 0.0, percent, 0.001)
}

func TestMotionGateDetectsChange(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 0))

	hasMotion, percent := mg.Evaluate(uniformFrame("f2.jpg", 64, 64, 255))

	assert.True(t, hasMotion)
	assert.Greater(t, percent, 99.0)
}

func TestMotionGateUndecodableFailsOpen(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 128))

	hasMotion, percent := mg.Evaluate(NewFrame("bad.jpg", []byte("not an image"), nil))
	assert.True(t, hasMotion)
	assert.InDelta(t, 0.0, percent, 0.001)

	// The stored frame must survive the bad one.
	hasMotion, _ = mg.Evaluate(uniformFrame("f3.jpg", 64, 64, 128))
	assert.False(t, hasMotion)
}

func TestMotionGateResolutionChange(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 128))

	hasMotion, percent := mg.Evaluate(uniformFrame("f2.jpg", 32, 32, 128))
	assert.True(t, hasMotion)
	assert.InDelta(t, 0.0, percent, 0.001)

	// The old reference is kept, so the original resolution still
	// compares cleanly.
	hasMotion, _ = mg.Evaluate(uniformFrame("f3.jpg", 64, 64, 128))
	assert.False(t, hasMotion)
}

func TestMotionGateReset(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 128))

	mg.Reset()

	hasMotion, percent := mg.Evaluate(uniformFrame("f2.jpg", 64, 64, 128))
	assert.True(t, hasMotion)
	assert.InDelta(t, 100.0, percent, 0.001)
}

func TestMotionGateReplacesReferenceOnSkip(t *testing.T) {
	mg := NewMotionGate(25, 0.5)
	mg.Evaluate(uniformFrame("f1.jpg", 64, 64, 100))

	// f2 is close enough to f1 to be skipped, but becomes the new
	// reference anyway.
	hasMotion, _ := mg.Evaluate(uniformFrame("f2.jpg", 64, 64, 110))
	assert.False(t, hasMotion)

	// f3 differs from f2 by only 10, so drift never accumulates into a
	// phantom motion event.
	hasMotion, _ = mg.Evaluate(uniformFrame("f3.jpg", 64, 64, 120))
	assert.False(t, hasMotion)
}
