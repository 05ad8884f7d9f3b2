package internal

import (
	"image"
	"sync"
)

// hashSize is the edge length of the downsampled grid the perceptual
// hash is computed over.
const hashSize = 64

// DuplicateGate decides whether a frame is visually indistinguishable
// from the previous processed frame. It stores a single average-hash
// fingerprint; the gate is only consulted for frames that already
// passed the motion gate.
type DuplicateGate struct {
	mu        sync.Mutex
	prevHash  []bool
	threshold float64 // similarity in [0,1] at which a frame is a duplicate
}

// NewDuplicateGate creates a duplicate gate with the given similarity
// threshold.
func NewDuplicateGate(threshold float64) *DuplicateGate {
	return &DuplicateGate{threshold: threshold}
}

// Evaluate reports whether the frame duplicates the previous one and
// how similar the two are (fraction of matching hash bits).
//
// The first frame reports (false, 0.0) and seeds the stored hash. A
// frame that cannot be decoded fails open: (false, 0.0), no mutation.
func (dg *DuplicateGate) Evaluate(frame *Frame) (bool, float64) {
	if !frame.Decoded() {
		return false, 0
	}

	current := averageHash(frame.Img)

	dg.mu.Lock()
	defer dg.mu.Unlock()

	if dg.prevHash == nil {
		dg.prevHash = current
		return false, 0
	}

	similarity := compareHashes(dg.prevHash, current)
	dg.prevHash = current

	return similarity >= dg.threshold, similarity
}

// Reset drops the stored hash. Called on stream restart.
func (dg *DuplicateGate) Reset() {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	dg.prevHash = nil
}

// averageHash computes a boolean fingerprint of the image's coarse
// intensity pattern: downsample to a small grid, then flag each pixel
// brighter than the grid's mean intensity.
func averageHash(img image.Image) []bool {
	small := downsampleGray(img, hashSize, hashSize)

	var sum int
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			sum += int(small.GrayAt(x, y).Y)
		}
	}
	mean := float64(sum) / float64(hashSize*hashSize)

	hash := make([]bool, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			hash[y*hashSize+x] = float64(small.GrayAt(x, y).Y) > mean
		}
	}
	return hash
}

// compareHashes returns the fraction of matching bits between two
// hashes, 0 when lengths differ.
func compareHashes(a, b []bool) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
