package geometry

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resampler scales an image to an exact size, ignoring aspect ratio.
type Resampler interface {
	Resize(img image.Image, w, h int) *image.NRGBA
	Name() string
}

// FilterResampler resamples with one of imaging's filters.
type FilterResampler struct {
	name   string
	filter imaging.ResampleFilter
}

func (r FilterResampler) Name() string { return r.name }

func (r FilterResampler) Resize(img image.Image, w, h int) *image.NRGBA {
	return imaging.Resize(img, w, h, r.filter)
}

// NfntResampler uses nfnt/resize's Lanczos3 kernel.
type NfntResampler struct{}

func (NfntResampler) Name() string { return "nfnt" }

func (NfntResampler) Resize(img image.Image, w, h int) *image.NRGBA {
	out := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	if n, ok := out.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(out)
}

// DefaultResampler is windowed-sinc Lanczos: sharp on upscale, alias-free on downscale.
func DefaultResampler() Resampler {
	return FilterResampler{name: "lanczos", filter: imaging.Lanczos}
}

// NewResampler looks up a resampler by name: lanczos, catmullrom, box
// (area averaging) or nfnt. Empty means lanczos.
func NewResampler(name string) (Resampler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return DefaultResampler(), nil
	case "catmullrom":
		return FilterResampler{name: "catmullrom", filter: imaging.CatmullRom}, nil
	case "box", "area":
		return FilterResampler{name: "box", filter: imaging.Box}, nil
	case "nfnt":
		return NfntResampler{}, nil
	}
	return nil, fmt.Errorf("unknown resampler %q", name)
}
