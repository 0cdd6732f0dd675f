// Package geometry frames a decoded photo to the exact pixel size of a
// document standard, either by stretching the whole image or by cutting a
// target-sized window positioned around the subject's face.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/edgepass/idphoto/internal/standard"
)

// ErrGeometryDegenerate marks a frame that cannot be computed: empty source,
// non-positive target, or (under PolicyReject) a source smaller than the target.
var ErrGeometryDegenerate = errors.New("degenerate crop geometry")

// FaceCenter is a face position in source pixel coordinates, measured from
// the top-left corner of the decoded image.
type FaceCenter struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HostFaceCenter converts the host's float pair into an optional hint.
// Both values equal to -1 is the "no hint" sentinel; non-finite values are
// treated the same way.
func HostFaceCenter(x, y float32) *FaceCenter {
	if x == -1 && y == -1 {
		return nil
	}
	fx, fy := float64(x), float64(y)
	if math.IsNaN(fx) || math.IsNaN(fy) || math.IsInf(fx, 0) || math.IsInf(fy, 0) {
		return nil
	}
	return &FaceCenter{X: fx, Y: fy}
}

// Framing selects how the target frame is obtained.
type Framing int

const (
	// FramingAuto crops around the face when a hint is given, resizes otherwise.
	FramingAuto Framing = iota
	// FramingResize always stretches the whole source to the target size.
	FramingResize
	// FramingCrop always cuts a target-size window; the image center stands
	// in for a missing face hint.
	FramingCrop
)

func (f Framing) String() string {
	switch f {
	case FramingResize:
		return "resize"
	case FramingCrop:
		return "crop"
	default:
		return "auto"
	}
}

// ParseFraming accepts "auto", "resize" or "crop". Empty means auto.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FramingAuto, nil
	case "resize":
		return FramingResize, nil
	case "crop", "face":
		return FramingCrop, nil
	}
	return FramingAuto, fmt.Errorf("unknown framing %q", s)
}

// DegeneratePolicy decides what a face crop does when the source is smaller
// than the target along either axis.
type DegeneratePolicy int

const (
	// PolicyUpscale scales the source up, preserving aspect, until it covers
	// the target, then crops.
	PolicyUpscale DegeneratePolicy = iota
	// PolicyReject fails with ErrGeometryDegenerate.
	PolicyReject
)

func (p DegeneratePolicy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "upscale"
}

// ParseDegeneratePolicy accepts "upscale" or "reject". Empty means upscale.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upscale":
		return PolicyUpscale, nil
	case "reject":
		return PolicyReject, nil
	}
	return PolicyUpscale, fmt.Errorf("unknown degenerate policy %q", s)
}

// Mode reports which strategy produced a frame.
type Mode string

const (
	ModeResize Mode = "resize"
	ModeCrop   Mode = "crop"
)

// Result is a framed image plus how it was obtained.
type Result struct {
	Image *image.NRGBA
	Mode  Mode
	// Rect is the crop window in the (possibly upscaled) source. Zero for resize.
	Rect image.Rectangle
	// Scale is the uniform upscale applied before cropping, 1 when none.
	Scale float64
}

// Framer holds the immutable framing settings. It is safe for concurrent use.
type Framer struct {
	Resampler Resampler
	Policy    DegeneratePolicy
}

// NewFramer returns a Framer with the Lanczos resampler and upscale policy.
func NewFramer() Framer {
	return Framer{Resampler: DefaultResampler(), Policy: PolicyUpscale}
}

// Frame produces an image of exactly cfg.TargetWidth x cfg.TargetHeight.
func (f Framer) Frame(img image.Image, cfg standard.CropConfig, face *FaceCenter, framing Framing) (*Result, error) {
	if cfg.TargetWidth <= 0 || cfg.TargetHeight <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrGeometryDegenerate, cfg.TargetWidth, cfg.TargetHeight)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty source", ErrGeometryDegenerate)
	}
	rs := f.Resampler
	if rs == nil {
		rs = DefaultResampler()
	}

	if framing == FramingResize || (framing == FramingAuto && face == nil) {
		return &Result{
			Image: rs.Resize(img, cfg.TargetWidth, cfg.TargetHeight),
			Mode:  ModeResize,
			Scale: 1,
		}, nil
	}

	if b.Dx() >= cfg.TargetWidth && b.Dy() >= cfg.TargetHeight {
		rect, err := CropRect(b.Dx(), b.Dy(), cfg, face)
		if err != nil {
			return nil, err
		}
		return &Result{
			Image: imaging.Crop(img, rect.Add(b.Min)),
			Mode:  ModeCrop,
			Rect:  rect,
			Scale: 1,
		}, nil
	}

	if f.Policy == PolicyReject {
		return nil, fmt.Errorf("%w: source %dx%d smaller than target %dx%d",
			ErrGeometryDegenerate, b.Dx(), b.Dy(), cfg.TargetWidth, cfg.TargetHeight)
	}
	return f.upscaleCrop(img, cfg, face, rs)
}

// upscaleCrop frames a source smaller than the target. The crop window is
// placed in the virtually upscaled image, mapped back to source pixels and
// only that window is resampled, so memory stays bounded by the target size
// however extreme the source aspect ratio is.
func (f Framer) upscaleCrop(img image.Image, cfg standard.CropConfig, face *FaceCenter, rs Resampler) (*Result, error) {
	b := img.Bounds()
	scale := coverScale(b.Dx(), b.Dy(), cfg.TargetWidth, cfg.TargetHeight)
	w := max(cfg.TargetWidth, int(math.Ceil(float64(b.Dx())*scale)))
	h := max(cfg.TargetHeight, int(math.Ceil(float64(b.Dy())*scale)))
	sx := float64(b.Dx()) / float64(w)
	sy := float64(b.Dy()) / float64(h)

	if face != nil {
		face = &FaceCenter{X: face.X / sx, Y: face.Y / sy}
	}
	rect, err := CropRect(w, h, cfg, face)
	if err != nil {
		return nil, err
	}

	x0 := clampInt(int(math.Floor(float64(rect.Min.X)*sx)), 0, b.Dx()-1)
	y0 := clampInt(int(math.Floor(float64(rect.Min.Y)*sy)), 0, b.Dy()-1)
	x1 := clampInt(int(math.Ceil(float64(rect.Max.X)*sx)), x0+1, b.Dx())
	y1 := clampInt(int(math.Ceil(float64(rect.Max.Y)*sy)), y0+1, b.Dy())
	window := imaging.Crop(img, image.Rect(x0, y0, x1, y1).Add(b.Min))

	return &Result{
		Image: rs.Resize(window, cfg.TargetWidth, cfg.TargetHeight),
		Mode:  ModeCrop,
		Rect:  rect,
		Scale: scale,
	}, nil
}

// CropRect computes the target-size window for a face-centered crop in a
// srcW x srcH image. The face sits horizontally centered and vertically in
// the middle of the face region (TargetHeight * TopMarginRatio). A nil face
// means the image center. The window is clamped so it never leaves the
// source; a source smaller than the target is ErrGeometryDegenerate.
func CropRect(srcW, srcH int, cfg standard.CropConfig, face *FaceCenter) (image.Rectangle, error) {
	w, h := cfg.TargetWidth, cfg.TargetHeight
	if w <= 0 || h <= 0 || srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: source %dx%d, target %dx%d",
			ErrGeometryDegenerate, srcW, srcH, w, h)
	}
	if srcW < w || srcH < h {
		return image.Rectangle{}, fmt.Errorf("%w: source %dx%d smaller than target %dx%d",
			ErrGeometryDegenerate, srcW, srcH, w, h)
	}

	cx, cy := float64(srcW)/2, float64(srcH)/2
	if face != nil {
		cx, cy = face.X, face.Y
	}

	x0 := clampOffset(cx-float64(w)/2, srcW-w)
	y0 := clampOffset(cy-cfg.FaceRegionHeight()/2, srcH-h)
	return image.Rect(x0, y0, x0+w, y0+h), nil
}

// clampOffset rounds v and clamps it into [0, hi].
func clampOffset(v float64, hi int) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(hi) {
		return hi
	}
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// coverScale is the smallest uniform factor that makes a srcW x srcH image
// at least w x h.
func coverScale(srcW, srcH, w, h int) float64 {
	return math.Max(float64(w)/float64(srcW), float64(h)/float64(srcH))
}
