package phash

import (
	"image"

	"github.com/disintegration/imaging"
)

// orient applies the transform corresponding to an EXIF Orientation tag
// value (1-8, per the EXIF spec) so that hashing always operates on an
// upright image regardless of how the camera wrote the pixel data.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
