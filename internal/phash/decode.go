package phash

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/user/dupeseer/internal/types"
)

// decodeImage reads a file into a decoded image.Image, applying the
// RAW-preview and EXIF-orientation handling step 2 requires. The
// blank imports above register png/jpeg/gif/webp/tiff/bmp decoders with
// image.Decode so ordinary formats fall straight through to the standard
// library path.
func decodeImage(path, mediaType string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &decodeErr{kind: types.KindIO, err: err}
	}

	if isRAWExtension(mediaType) {
		return decodeRAWPreview(data)
	}

	if isHEICExtension(mediaType) {
		// No pure-Go HEIC container decoder is wired; the
		// container is unsupported rather than guessed at.
		return nil, &decodeErr{kind: types.KindUnsupported, err: fmt.Errorf("heic/heif decoding not available")}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &decodeErr{kind: types.KindDecode, err: err}
	}
	return applyOrientation(img, data), nil
}

// decodeRAWPreview extracts the embedded JPEG preview from a RAW file via
// its EXIF thumbnail/preview tags, step 2. If no preview is
// present the format is reported unsupported rather than attempting to
// decode raw sensor data (which this module never does).
func decodeRAWPreview(data []byte) (image.Image, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &decodeErr{kind: types.KindUnsupported, err: fmt.Errorf("no EXIF preview available in RAW file: %w", err)}
	}
	thumb, err := x.JpegThumbnail()
	if err != nil || len(thumb) == 0 {
		return nil, &decodeErr{kind: types.KindUnsupported, err: fmt.Errorf("RAW file has no embedded JPEG preview")}
	}
	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		return nil, &decodeErr{kind: types.KindDecode, err: err}
	}
	return applyOrientation(img, data), nil
}

// applyOrientation rotates/flips img according to the EXIF Orientation tag
// found in data, if any. Files without readable EXIF (most PNG/GIF/webp)
// pass through unchanged.
func applyOrientation(img image.Image, data []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}
	return orient(img, orientation)
}

func isRAWExtension(mediaType string) bool {
	return types.RawExtensions[strings.ToLower(mediaType)]
}

func isHEICExtension(mediaType string) bool {
	return strings.EqualFold(mediaType, "heic") || strings.EqualFold(mediaType, "heif")
}

// decodeErr carries the ErrorKind classification requires
// (DecodeError / IoError / UnsupportedFormat) through the decode path.
type decodeErr struct {
	kind types.ErrorKind
	err  error
}

func (e *decodeErr) Error() string { return e.err.Error() }
func (e *decodeErr) Kind() types.ErrorKind { return e.kind }
