package codec

import (
	"image"
)

// DefaultQuality is the JPEG quality used for document photos.
const DefaultQuality = 95

// Encoder encodes a finished photo to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "png", "webp").
	Format() string

	// Encode converts the image to bytes at the given quality (1-100).
	// Lossless formats ignore quality.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available reports whether the encoder can run on this host.
	// External encoders (cwebp) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string

	// ContentType returns the MIME type of the encoded output.
	ContentType() string
}

func normalizeQuality(q int) int {
	if q <= 0 || q > 100 {
		return DefaultQuality
	}
	return q
}
