package codec

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func TestJPEGRoundTripDimensions(t *testing.T) {
	enc := &JPEGEncoder{}
	data, err := enc.Encode(gradient(350, 450), DefaultQuality)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 350, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())

	cfg, format, err := DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 350, cfg.Width)
}

func TestPNGRoundTripIsLossless(t *testing.T) {
	src := gradient(40, 30)
	data, err := (&PNGEncoder{}).Encode(src, 0)
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, src.Bounds().Size(), img.Bounds().Size())

	r1, g1, b1, _ := src.At(17, 9).RGBA()
	r2, g2, b2, _ := img.At(17, 9).RGBA()
	assert.Equal(t, []uint32{r1, g1, b1}, []uint32{r2, g2, b2})
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Decode([]byte("definitely not an image"))
	assert.Error(t, err)

	_, _, err = DecodeConfig(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	enc, ok := r.Resolve("")
	require.True(t, ok)
	assert.Equal(t, "jpeg", enc.Format())

	enc, ok = r.Resolve("JPG")
	require.True(t, ok)
	assert.Equal(t, "jpeg", enc.Format())

	enc, ok = r.Resolve("png")
	require.True(t, ok)
	assert.Equal(t, "image/png", enc.ContentType())

	enc, ok = r.Resolve("heic")
	assert.False(t, ok)
	assert.Equal(t, "jpeg", enc.Format())

	assert.Contains(t, r.Available(), "jpeg")
	assert.Contains(t, r.String(), "jpeg")
}

func TestNormalizeQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, normalizeQuality(0))
	assert.Equal(t, DefaultQuality, normalizeQuality(101))
	assert.Equal(t, 80, normalizeQuality(80))
}
