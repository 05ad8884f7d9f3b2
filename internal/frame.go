package internal

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Frame is a single captured image plus its identity. It is immutable
// once produced; gates never modify it.
type Frame struct {
	Seq        int64
	Path       string
	Name       string
	CapturedAt time.Time
	Raw        []byte      // encoded bytes as captured
	Img        image.Image // nil when the bytes could not be decoded
}

// LoadFrame reads a captured frame from disk. A file that cannot be
// decoded still yields a Frame (with Img nil) so the gates can apply
// their fail-open policy instead of dropping the frame silently.
func LoadFrame(path string) (*Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		Path:       path,
		Name:       filepath.Base(path),
		CapturedAt: time.Now(),
		Raw:        raw,
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		f.Img = img
	} else {
		LogWarn("Frame %s could not be decoded: %v", f.Name, err)
	}

	return f, nil
}

// NewFrame builds a frame from an already decoded image. Used by feeds
// that hold frames in memory and by tests.
func NewFrame(name string, raw []byte, img image.Image) *Frame {
	return &Frame{
		Name:       name,
		CapturedAt: time.Now(),
		Raw:        raw,
		Img:        img,
	}
}

// Decoded reports whether the frame carries a usable raster.
func (f *Frame) Decoded() bool {
	return f != nil && f.Img != nil
}
