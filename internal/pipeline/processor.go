package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/edgepass/idphoto/internal/codec"
	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/hasher"
	"github.com/edgepass/idphoto/internal/manifest"
)

type processResult struct {
	key    string
	photo  manifest.Photo
	reused bool
	err    error
}

// processPhoto renders one source and writes it as
// <key>.<standard>.<hash8>.<ext> under the output directory.
func processPhoto(ctx context.Context, src Source, cfg Config, r Renderer) processResult {
	result := processResult{key: src.Key}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}

	// Dimensions are informational; a bad header surfaces from Render.
	var w, h int
	if c, _, err := codec.DecodeConfig(data); err == nil {
		w, h = c.Width, c.Height
	}

	out, err := r.Render(ctx, engine.Request{
		Image:            data,
		Standard:         cfg.Standard,
		RemoveBackground: cfg.RemoveBackground,
		Framing:          cfg.Framing,
	})
	if err != nil {
		result.err = fmt.Errorf("%s: %w", src.RelPath, err)
		return result
	}

	hash := hasher.ContentHash(out.Data, 16)
	fileName := fmt.Sprintf("%s.%s.%s.%s", path.Base(src.Key), out.Standard, hash[:hasher.NameLen], out.Extension)
	relPath := fileName
	if dir := path.Dir(src.Key); dir != "." {
		relPath = dir + "/" + fileName
	}
	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("mkdir for %s: %w", relPath, err)
		return result
	}

	write := true
	if cfg.NoOverwrite {
		if _, err := os.Stat(outPath); err == nil {
			write = false
			result.reused = true
		} else if !errors.Is(err, fs.ErrNotExist) {
			result.err = fmt.Errorf("stat %s: %w", relPath, err)
			return result
		}
	}
	if write {
		if err := os.WriteFile(outPath, out.Data, 0o644); err != nil {
			result.err = fmt.Errorf("write %s: %w", relPath, err)
			return result
		}
	}

	result.photo = manifest.Photo{
		Source: manifest.SourceInfo{
			Path:   src.RelPath,
			Width:  w,
			Height: h,
			Format: src.Format,
			Size:   src.Size,
		},
		Output: manifest.Output{
			Format: out.Format,
			Mode:   string(out.Mode),
			Width:  out.Width,
			Height: out.Height,
			Size:   int64(len(out.Data)),
			Hash:   hash,
			Path:   relPath,
		},
	}
	return result
}
