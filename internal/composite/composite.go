package composite

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/edgepass/idphoto/internal/mask"
)

// White is the document background.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// OntoWhite copies src onto an opaque white canvas of the same size. With a
// nil mask every pixel is copied; otherwise only pixels the mask marks as
// foreground are. Copied pixels keep their RGB and become fully opaque.
func OntoWhite(src image.Image, m *image.Gray) *image.NRGBA {
	// imaging.Clone normalises to NRGBA at origin (0,0), so Pix can be read directly.
	in := imaging.Clone(src)
	w, h := in.Rect.Dx(), in.Rect.Dy()
	out := imaging.New(w, h, White)

	for y := 0; y < h; y++ {
		si := y * in.Stride
		di := y * out.Stride
		for x := 0; x < w; x++ {
			if m == nil || mask.IsForeground(m, x, y) {
				out.Pix[di+0] = in.Pix[si+0]
				out.Pix[di+1] = in.Pix[si+1]
				out.Pix[di+2] = in.Pix[si+2]
				out.Pix[di+3] = 0xff
			}
			si += 4
			di += 4
		}
	}
	return out
}
