package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyInput is returned when there are no bytes to decode.
var ErrEmptyInput = errors.New("empty image payload")

// Decode turns compressed bytes into pixels. EXIF orientation is applied so
// portrait phone shots come out upright.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("decoded image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	return img, nil
}

// DecodeConfig reads only the header: format name and dimensions.
func DecodeConfig(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", ErrEmptyInput
	}
	return image.DecodeConfig(bytes.NewReader(data))
}
