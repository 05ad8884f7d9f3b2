package internal

import (
	"image"
	"image/color"
)

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// boxBlur applies a separable box blur of the given radius. Two passes
// (horizontal then vertical) give the same smoothing footprint as a
// (2*radius+1)-square kernel at a fraction of the cost.
func boxBlur(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return src
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return src
	}

	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)

	// Horizontal pass
	for y := 0; y < h; y++ {
		var sum int
		count := 0
		for x := -radius; x <= radius; x++ {
			if x >= 0 && x < w {
				sum += int(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
				count++
			}
		}
		for x := 0; x < w; x++ {
			tmp.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(sum / count)})

			enter := x + radius + 1
			if enter < w {
				sum += int(src.GrayAt(bounds.Min.X+enter, bounds.Min.Y+y).Y)
				count++
			}
			leave := x - radius
			if leave >= 0 {
				sum -= int(src.GrayAt(bounds.Min.X+leave, bounds.Min.Y+y).Y)
				count--
			}
		}
	}

	// Vertical pass
	for x := 0; x < w; x++ {
		var sum int
		count := 0
		for y := -radius; y <= radius; y++ {
			if y >= 0 && y < h {
				sum += int(tmp.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
				count++
			}
		}
		for y := 0; y < h; y++ {
			dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(sum / count)})

			enter := y + radius + 1
			if enter < h {
				sum += int(tmp.GrayAt(bounds.Min.X+x, bounds.Min.Y+enter).Y)
				count++
			}
			leave := y - radius
			if leave >= 0 {
				sum -= int(tmp.GrayAt(bounds.Min.X+x, bounds.Min.Y+leave).Y)
				count--
			}
		}
	}

	return dst
}

// dilate grows the set bits of a binary mask by one 3x3 step per
// iteration, merging small disjoint changed regions.
func dilate(mask []bool, w, h, iterations int) []bool {
	for i := 0; i < iterations; i++ {
		out := make([]bool, len(mask))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !mask[y*w+x] {
					continue
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx >= 0 && nx < w && ny >= 0 && ny < h {
							out[ny*w+nx] = true
						}
					}
				}
			}
		}
		mask = out
	}
	return mask
}

// downsampleGray shrinks an image to a fixed small grid by averaging
// each destination pixel's source block.
func downsampleGray(img image.Image, dw, dh int) *image.Gray {
	gray := toGray(img)
	bounds := gray.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()

	out := image.NewGray(image.Rect(0, 0, dw, dh))
	for dy := 0; dy < dh; dy++ {
		y0 := dy * sh / dh
		y1 := (dy + 1) * sh / dh
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for dx := 0; dx < dw; dx++ {
			x0 := dx * sw / dw
			x1 := (dx + 1) * sw / dw
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum, count int
			for y := y0; y < y1 && y < sh; y++ {
				for x := x0; x < x1 && x < sw; x++ {
					sum += int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
					count++
				}
			}
			if count == 0 {
				count = 1
			}
			out.SetGray(dx, dy, color.Gray{Y: uint8(sum / count)})
		}
	}
	return out
}
