// Package mask builds the silhouette mask used to white out the background.
//
// The mask is a fixed ellipse inscribed in the frame, not a segmentation:
// it assumes the subject is centered and fills most of the ellipse.
package mask

import (
	"image"
	"math"
)

const (
	// Foreground and Background are the two values Ellipse writes.
	Foreground uint8 = 255
	Background uint8 = 0

	// Threshold splits mask values; strictly above it is foreground.
	Threshold uint8 = 128

	// Semi-axes as fractions of the frame width and height.
	SemiAxisX = 0.40
	SemiAxisY = 0.50
)

// Ellipse returns a w x h mask with an ellipse centered on the frame,
// semi-axes SemiAxisX*w and SemiAxisY*h. A pixel whose normalised distance
// from the center is <= 1 is Foreground.
func Ellipse(w, h int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if w <= 0 || h <= 0 {
		return m
	}

	cx := float64(w) / 2
	cy := float64(h) / 2
	a := float64(w) * SemiAxisX
	b := float64(h) * SemiAxisY

	for y := 0; y < h; y++ {
		dy := (float64(y) - cy) / b
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		for x := range row {
			dx := (float64(x) - cx) / a
			if math.Sqrt(dx*dx+dy*dy) <= 1.0 {
				row[x] = Foreground
			}
		}
	}
	return m
}

// IsForeground reports whether the mask keeps the pixel at (x, y).
// Points outside the mask are background.
func IsForeground(m *image.Gray, x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(m.Rect) {
		return false
	}
	return m.GrayAt(x, y).Y > Threshold
}

// Coverage returns the share of foreground pixels, for diagnostics.
func Coverage(m *image.Gray) float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	var n int
	for _, v := range m.Pix {
		if v > Threshold {
			n++
		}
	}
	return float64(n) / float64(len(m.Pix))
}
