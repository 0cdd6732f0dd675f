package codec

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

var tempCounter atomic.Int64

// WebPEncoder shells out to cwebp so the binary stays CGO-free.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	once      sync.Once
	available bool
	cwebpPath string
}

func (e *WebPEncoder) Format() string      { return "webp" }
func (e *WebPEncoder) Extension() string   { return "webp" }
func (e *WebPEncoder) ContentType() string { return "image/webp" }

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		path, err := exec.LookPath("cwebp")
		if err == nil {
			e.available = true
			e.cwebpPath = path
		}
	})
	return e.available
}

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH")
	}

	id := tempCounter.Add(1)
	src, err := os.CreateTemp("", fmt.Sprintf("idphoto_src_%d_*.png", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := src.Name()
	defer os.Remove(srcPath)

	if err := imaging.Encode(src, img, imaging.PNG); err != nil {
		src.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := src.Close(); err != nil {
		return nil, fmt.Errorf("close temp: %w", err)
	}

	dst, err := os.CreateTemp("", fmt.Sprintf("idphoto_dst_%d_*.webp", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dst.Name()
	dst.Close()
	defer os.Remove(dstPath)

	cmd := exec.Command(e.cwebpPath,
		"-q", strconv.Itoa(normalizeQuality(quality)),
		"-m", "6",
		"-quiet",
		srcPath,
		"-o", dstPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cwebp: %w: %s", err, string(out))
	}

	return os.ReadFile(dstPath)
}
