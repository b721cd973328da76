package phash

import (
	"image"

	"github.com/disintegration/imaging"
)

// grid is a row-major integer luminance image, values in [0, 255].
type grid struct {
	w, h int
	y    []int
}

func (g *grid) at(x, yy int) int { return g.y[yy*g.w+x] }

// luminanceGrid resizes img to w×h with a box/area filter ('s
// "fixed resize filter" requirement) and converts every pixel to an integer
// luminance value using the mandated coefficients
//
//	Y = (77*R + 150*G + 29*B) >> 8
//
// computed from 8-bit channel values, so the result is identical across
// platforms and color.Model implementations.
func luminanceGrid(img image.Image, w, h int) *grid {
	resized := imaging.Resize(img, w, h, imaging.Box)
	bounds := resized.Bounds()

	g := &grid{w: w, h: h, y: make([]int, w*h)}
	for yy := 0; yy < h; yy++ {
		for xx := 0; xx < w; xx++ {
			r, gr, b, _ := resized.At(bounds.Min.X+xx, bounds.Min.Y+yy).RGBA()
			// image.Color.RGBA() returns 16-bit-scaled channels; reduce to 8-bit.
			r8, g8, b8 := r>>8, gr>>8, b>>8
			y := (77*int(r8) + 150*int(g8) + 29*int(b8)) >> 8
			g.y[yy*w+xx] = y
		}
	}
	return g
}

// ensureRGBA normalizes an arbitrary decoded image to image.Image, which is
// already the interface luminanceGrid needs; kept as a named step so decode
// paths (standard, RAW preview, HEIC) share one conversion point.
func ensureRGBA(img image.Image) image.Image {
	if _, ok := img.(*image.RGBA); ok {
		return img
	}
	return imaging.Clone(img)
}
