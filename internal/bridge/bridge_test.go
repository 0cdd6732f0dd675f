package bridge

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/codec"
	"github.com/edgepass/idphoto/internal/engine"
)

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: 90, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHost_NotInitialized(t *testing.T) {
	var h Host
	assert.False(t, h.Ready())
	assert.Nil(t, h.Engine())

	out, err := h.Generate(context.Background(), photo(t, 10, 10), 0, nil, -1, -1, false)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestHost_InitAndGenerate(t *testing.T) {
	h := NewHost(zap.NewNop())
	e := h.Init("/data/models")
	require.NotNil(t, e)
	assert.True(t, h.Ready())
	assert.Equal(t, "/data/models", h.Engine().ModelPath())
	assert.Equal(t, "EdgePass Core v0.1.0", h.Version())

	tests := []struct {
		name     string
		id       int
		w, h     int
		fx, fy   float32
		removeBg bool
	}{
		{"saudi no hint", 0, 500, 500, -1, -1, false},
		{"us with hint", 1, 600, 600, 400, 300, true},
		{"uk", 4, 350, 450, -1, -1, true},
		{"custom id", 99, 500, 500, -1, -1, false},
		{"unknown id falls back", 17, 450, 550, -1, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Generate(context.Background(), photo(t, 800, 700), tt.id, []byte("suit"), tt.fx, tt.fy, tt.removeBg)
			require.NoError(t, err)
			require.NotEmpty(t, out)

			cfg, _, err := codec.DecodeConfig(out)
			require.NoError(t, err)
			assert.Equal(t, tt.w, cfg.Width)
			assert.Equal(t, tt.h, cfg.Height)
		})
	}
}

func TestHost_DecodeErrorSurfaces(t *testing.T) {
	h := NewHost(zap.NewNop())
	h.Init("")
	_, err := h.Generate(context.Background(), []byte{0xff, 0xd8, 0x00}, 1, nil, -1, -1, false)
	assert.ErrorIs(t, err, engine.ErrDecode)
	assert.True(t, h.Ready(), "a bad input must not take down the handle")
}

func TestHost_ConcurrentFirstUse(t *testing.T) {
	h := NewHost(zap.NewNop(), engine.WithFormat("png"))
	h.Init("")
	in := photo(t, 640, 480)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := in
			if i%3 == 0 {
				input = []byte("garbage")
			}
			out, err := h.Generate(context.Background(), input, i%6, nil, -1, -1, i%2 == 0)
			if i%3 == 0 {
				assert.ErrorIs(t, err, engine.ErrDecode)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, out)
		}(i)
	}
	wg.Wait()
}
