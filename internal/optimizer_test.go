package internal

import (
	"bytes"
	"image"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG encodes a random-noise image, which compresses poorly and
// reliably exceeds small size caps.
func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimizePassThroughUnderCap(t *testing.T) {
	o := NewJPEGOptimizer(150, 85, nil)
	data := []byte{0xff, 0xd8, 0x01, 0x02}

	assert.Equal(t, data, o.Optimize(data))
}

func TestOptimizeShrinksOversizedImage(t *testing.T) {
	o := NewJPEGOptimizer(1, 60, nil)
	data := noisyPNG(t, 2000, 1000)

	out := o.Optimize(data)

	require.NotEqual(t, data, out)
	assert.Less(t, len(out), len(data))

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, img.Bounds().Dx(), 1280)
	assert.LessOrEqual(t, img.Bounds().Dy(), 1280)
}

func TestOptimizePreservesAspectRatio(t *testing.T) {
	o := NewJPEGOptimizer(1, 60, nil)
	data := noisyPNG(t, 2560, 1280)

	out := o.Optimize(data)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
	assert.Equal(t, 640, img.Bounds().Dy())
}

func TestOptimizeUndecodableReturnsInput(t *testing.T) {
	o := NewJPEGOptimizer(0, 85, nil)
	data := bytes.Repeat([]byte{0xab}, 4096)

	assert.Equal(t, data, o.Optimize(data))
}
