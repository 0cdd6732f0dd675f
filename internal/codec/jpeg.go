package codec

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// JPEGEncoder is the default output encoder.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string      { return "jpeg" }
func (e *JPEGEncoder) Extension() string   { return "jpg" }
func (e *JPEGEncoder) ContentType() string { return "image/jpeg" }
func (e *JPEGEncoder) Available() bool     { return true }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 * 1024) // a 600x600 q95 photo is typically 60-120KB

	err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(normalizeQuality(quality)))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
