//go:build ignore

// gen_fixtures creates synthetic portraits for the batch smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(filepath.Join(dir, "family"), 0o755); err != nil {
		panic(err)
	}

	// Larger than every standard: exercises the resize path.
	save(filepath.Join(dir, "applicant.jpg"), portrait(1200, 1600, 600, 560))
	// Landscape webcam frame.
	save(filepath.Join(dir, "webcam.png"), portrait(640, 480, 320, 200))
	// Smaller than every standard: exercises the upscale policy under --framing crop.
	save(filepath.Join(dir, "family", "child.png"), portrait(300, 320, 150, 140))
	save(filepath.Join(dir, "family", "parent.jpg"), portrait(900, 1100, 450, 420))

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 4 fixtures in %s\n", dir)
}

// portrait draws a grey studio backdrop with a skin-toned ellipse for the
// head at (cx, cy) and a dark torso below it.
func portrait(w, h, cx, cy int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{R: 170, G: 175, B: 180, A: 255})
	rx, ry := float64(w)*0.12, float64(h)*0.16
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - float64(cx)) / rx
			dy := (float64(y) - float64(cy)) / ry
			switch {
			case dx*dx+dy*dy <= 1:
				img.SetNRGBA(x, y, color.NRGBA{R: 224, G: 172, B: 140, A: 255})
			case y > cy+int(ry) && abs(x-cx) < int(rx*2.2):
				img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 44, B: 60, A: 255})
			}
		}
	}
	return img
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func save(path string, img image.Image) {
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		panic(err)
	}
}
