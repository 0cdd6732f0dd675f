package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edgepass/idphoto/internal/codec"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/standard"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeNRGBA(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := codec.Decode(data)
	require.NoError(t, err)
	n, ok := img.(*image.NRGBA)
	if !ok {
		n = image.NewNRGBA(img.Bounds())
		for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
			for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
				n.Set(x, y, img.At(x, y))
			}
		}
	}
	return n
}

type failingEncoder struct{ data []byte }

func (f failingEncoder) Format() string      { return "fail" }
func (f failingEncoder) Extension() string   { return "bin" }
func (f failingEncoder) ContentType() string { return "application/octet-stream" }
func (f failingEncoder) Available() bool     { return true }
func (f failingEncoder) Encode(image.Image, int) ([]byte, error) {
	if f.data != nil {
		return f.data, nil
	}
	return nil, errors.New("disk on fire")
}

type panickingResampler struct{}

func (panickingResampler) Name() string { return "panic" }
func (panickingResampler) Resize(image.Image, int, int) *image.NRGBA {
	panic("resampler exploded")
}

func TestProcess_ExactResizeNoWhite(t *testing.T) {
	e := New("", WithFormat("png"))
	c := color.NRGBA{R: 30, G: 60, B: 90, A: 255}

	out, err := e.Render(context.Background(), Request{
		Image:    pngBytes(t, solid(1000, 1000, c)),
		Standard: standard.UK,
	})
	require.NoError(t, err)
	assert.Equal(t, geometry.ModeResize, out.Mode)
	assert.Equal(t, 350, out.Width)
	assert.Equal(t, 450, out.Height)

	img := decodeNRGBA(t, out.Data)
	require.Equal(t, image.Pt(350, 450), img.Bounds().Size())
	for i := 0; i < len(img.Pix); i += 4 {
		require.InDelta(t, int(c.R), int(img.Pix[i]), 1)
		require.InDelta(t, int(c.G), int(img.Pix[i+1]), 1)
		require.InDelta(t, int(c.B), int(img.Pix[i+2]), 1)
		require.Equal(t, uint8(255), img.Pix[i+3])
	}
}

func TestProcess_RemoveBackground500(t *testing.T) {
	src := pattern(500, 500)
	e := New("", WithFormat("png"))

	data, err := e.Process(context.Background(), Request{
		Image:            pngBytes(t, src),
		Standard:         standard.SaudiEVisa,
		RemoveBackground: true,
	})
	require.NoError(t, err)

	img := decodeNRGBA(t, data)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(499, 499))
	assert.Equal(t, src.NRGBAAt(250, 250), img.NRGBAAt(250, 250))
}

func TestProcess_FaceAtCenterOfEqualSource(t *testing.T) {
	src := pattern(500, 500)
	e := New("", WithFormat("png"))

	out, err := e.Render(context.Background(), Request{
		Image:    pngBytes(t, src),
		Standard: standard.Schengen,
		Face:     &geometry.FaceCenter{X: 250, Y: 250},
	})
	require.NoError(t, err)
	assert.Equal(t, geometry.ModeCrop, out.Mode)

	img := decodeNRGBA(t, out.Data)
	assert.Equal(t, src.Pix, img.Pix)
}

func TestProcess_JPEGRoundTrip(t *testing.T) {
	e := New("models/")
	assert.Equal(t, "models/", e.ModelPath())
	assert.Equal(t, "jpeg", e.Format())

	for _, s := range standard.All() {
		data, err := e.Process(context.Background(), Request{Image: pngBytes(t, pattern(320, 240)), Standard: s})
		require.NoError(t, err, s.String())
		require.NotEmpty(t, data)

		cfg, format, err := codec.DecodeConfig(data)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		want := standard.Resolve(s)
		assert.Equal(t, want.TargetWidth, cfg.Width, s.String())
		assert.Equal(t, want.TargetHeight, cfg.Height, s.String())
	}
}

func TestProcess_SuitIsIgnored(t *testing.T) {
	e := New("", WithFormat("png"))
	in := pngBytes(t, pattern(640, 480))

	a, err := e.Process(context.Background(), Request{Image: in, Standard: standard.US})
	require.NoError(t, err)
	b, err := e.Process(context.Background(), Request{Image: in, Standard: standard.US, Suit: []byte("not even an image")})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProcess_DecodeError(t *testing.T) {
	e := New("")
	for _, in := range [][]byte{nil, {}, []byte("GIF89a but not really")} {
		_, err := e.Process(context.Background(), Request{Image: in, Standard: standard.US})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDecode)
		assert.NotErrorIs(t, err, ErrEncode)

		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageDecode, se.Stage)
	}

	_, err := e.Process(context.Background(), Request{Standard: standard.US})
	assert.ErrorIs(t, err, codec.ErrEmptyInput)
}

func TestProcess_EncodeError(t *testing.T) {
	in := pngBytes(t, pattern(100, 100))

	_, err := New("", WithEncoder(failingEncoder{})).Process(context.Background(), Request{Image: in})
	assert.ErrorIs(t, err, ErrEncode)
	assert.Contains(t, err.Error(), "disk on fire")

	_, err = New("", WithEncoder(failingEncoder{data: []byte{}})).Process(context.Background(), Request{Image: in})
	assert.ErrorIs(t, err, ErrEncode)
}

func TestProcess_DegenerateReject(t *testing.T) {
	e := New("", WithDegeneratePolicy(geometry.PolicyReject))
	_, err := e.Process(context.Background(), Request{
		Image:    pngBytes(t, pattern(200, 200)),
		Standard: standard.US,
		Framing:  geometry.FramingCrop,
	})
	assert.ErrorIs(t, err, ErrGeometryDegenerate)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFrame, se.Stage)
}

func TestProcess_DegenerateUpscale(t *testing.T) {
	out, err := New("").Render(context.Background(), Request{
		Image:    pngBytes(t, pattern(200, 100)),
		Standard: standard.US,
		Face:     &geometry.FaceCenter{X: 100, Y: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 600, out.Width)
	assert.Equal(t, 600, out.Height)
}

func TestProcess_PanicIsContained(t *testing.T) {
	e := New("", WithResampler(panickingResampler{}), WithFormat("png"))

	_, err := e.Process(context.Background(), Request{Image: pngBytes(t, pattern(50, 50)), Standard: standard.UK})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)

	// A crop that needs no resampling still works on the same handle.
	out, err := e.Render(context.Background(), Request{
		Image:    pngBytes(t, pattern(400, 500)),
		Standard: standard.UK,
		Face:     &geometry.FaceCenter{X: 200, Y: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, 350, out.Width)
}

func TestProcess_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("").Process(ctx, Request{Image: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_ConcurrentUse(t *testing.T) {
	e := New("")
	in := pngBytes(t, pattern(400, 300))

	var wg sync.WaitGroup
	errs := make([]error, 24)
	dims := make([]image.Point, 24)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := standard.All()[i%len(standard.All())]
			out, err := e.Render(context.Background(), Request{Image: in, Standard: s, RemoveBackground: i%2 == 0})
			errs[i] = err
			if err == nil {
				dims[i] = image.Pt(out.Width, out.Height)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		s := standard.All()[i%len(standard.All())]
		cfg := standard.Resolve(s)
		assert.Equal(t, image.Pt(cfg.TargetWidth, cfg.TargetHeight), dims[i])
	}
}

func TestStageError_Format(t *testing.T) {
	err := stageErr(StageDecode, ErrDecode, errors.New("bad header"))
	assert.Equal(t, "decode: decode failed: bad header", err.Error())

	err = stageErr(StageEncode, ErrEncode, nil)
	assert.Equal(t, "encode: encode failed", err.Error())
}

func TestProcess_LogsMaskCoverage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New("", WithLogger(zap.New(core)), WithFormat("png"))
	in := pngBytes(t, pattern(400, 400))

	_, err := e.Process(context.Background(), Request{Image: in, Standard: standard.Schengen, RemoveBackground: true})
	require.NoError(t, err)
	_, err = e.Process(context.Background(), Request{Image: in, Standard: standard.Schengen})
	require.NoError(t, err)

	processed := logs.FilterMessage("processed").All()
	require.Len(t, processed, 2)
	cov, ok := processed[0].ContextMap()["mask_coverage"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 0.628, cov, 0.01)
	assert.NotContains(t, processed[1].ContextMap(), "mask_coverage")
}
