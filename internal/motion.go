package internal

import (
	"image"
	"sync"
)

// blurRadius gives a 21x21 smoothing footprint, wide enough to suppress
// sensor noise before frames are compared.
const blurRadius = 10

// MotionGate decides whether a frame differs enough from the previous
// one to be worth analyzing. It keeps exactly one slot of history: the
// grayscale, blurred version of the most recent decodable frame.
type MotionGate struct {
	mu               sync.Mutex
	prev             *image.Gray
	threshold        int     // pixel difference threshold (0-255)
	minChangePercent float64 // minimum % of pixels that must change
}

// NewMotionGate creates a motion gate with the given tunables.
func NewMotionGate(threshold int, minChangePercent float64) *MotionGate {
	return &MotionGate{
		threshold:        threshold,
		minChangePercent: minChangePercent,
	}
}

// Evaluate reports whether the frame has significant motion and what
// fraction of the frame changed, as a percentage.
//
// The first decodable frame always reports (true, 100.0) so the
// pipeline never stalls on bootstrap. A frame that cannot be decoded
// fails open: (true, 0.0) with no state mutation. The stored frame is
// otherwise always replaced, regardless of the motion verdict.
func (mg *MotionGate) Evaluate(frame *Frame) (bool, float64) {
	if !frame.Decoded() {
		return true, 0
	}

	gray := boxBlur(toGray(frame.Img), blurRadius)

	mg.mu.Lock()
	defer mg.mu.Unlock()

	if mg.prev == nil {
		mg.prev = gray
		return true, 100.0
	}

	prev := mg.prev
	if prev.Bounds() != gray.Bounds() {
		// Resolution changed mid-stream; the diff is meaningless, so
		// fail open and keep the old reference.
		LogWarn("Motion gate: frame size changed from %v to %v", prev.Bounds(), gray.Bounds())
		return true, 0
	}

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := int(prev.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			b := int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			d := a - b
			if d < 0 {
				d = -d
			}
			mask[y*w+x] = d > mg.threshold
		}
	}
	mask = dilate(mask, w, h, 2)

	changed := 0
	for _, m := range mask {
		if m {
			changed++
		}
	}
	motionPercent := float64(changed) / float64(w*h) * 100

	mg.prev = gray

	return motionPercent >= mg.minChangePercent, motionPercent
}

// Reset drops the stored frame. Called on stream restart.
func (mg *MotionGate) Reset() {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.prev = nil
}
