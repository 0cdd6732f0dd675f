// Package pipeline renders every image in a directory to one document
// standard and records the results in a manifest.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/manifest"
	"github.com/edgepass/idphoto/internal/standard"
)

// Renderer turns one request into an encoded photo. *engine.Engine and
// *bridge.Host both satisfy it.
type Renderer interface {
	Render(ctx context.Context, req engine.Request) (*engine.Output, error)
}

// Config holds all parameters for a batch run.
type Config struct {
	InputDir         string
	OutputDir        string
	Standard         standard.Standard
	Framing          geometry.Framing
	RemoveBackground bool
	Workers          int
	// Quality is recorded in the manifest only; the renderer owns encoding.
	Quality int
	// NoOverwrite keeps an existing output file with the same name. Names
	// are content-addressed, so an existing file already holds the bytes.
	NoOverwrite bool
}

// Pipeline orchestrates a batch run.
type Pipeline struct {
	cfg      Config
	renderer Renderer
	log      *zap.Logger
}

// New creates a configured pipeline.
func New(cfg Config, r Renderer, log *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, renderer: r, log: log.Named("pipeline")}
}

// Run processes every image under InputDir and returns the manifest.
// Individual failures are recorded in the manifest; Run only fails when
// nothing could be processed.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	sources, err := ScanImages(p.cfg.InputDir, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	total := len(sources)
	sources, dups := dedupeKeys(sources)
	p.log.Info("scan complete", zap.Int("images", total), zap.Int("duplicate_keys", len(dups)),
		zap.Stringer("standard", p.cfg.Standard))

	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = processResult{key: s.Key, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			results[idx] = processPhoto(ctx, s, p.cfg, p.renderer)
			if results[idx].err == nil {
				p.log.Debug("done", zap.String("key", s.Key), zap.String("path", results[idx].photo.Output.Path))
			}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := manifest.New(p.cfg.Standard.String(), "", engine.Version)
	m.RunInfo = &manifest.RunInfo{
		Workers:          p.cfg.Workers,
		RemoveBackground: p.cfg.RemoveBackground,
		Framing:          p.cfg.Framing.String(),
		Quality:          p.cfg.Quality,
	}

	for rel, msg := range dups {
		if m.Failures == nil {
			m.Failures = make(map[string]string)
		}
		m.Failures[rel] = msg
		p.log.Warn("photo skipped", zap.String("path", rel), zap.String("reason", msg))
	}

	var reused int
	for _, r := range results {
		if r.err != nil {
			if m.Failures == nil {
				m.Failures = make(map[string]string)
			}
			m.Failures[r.key] = r.err.Error()
			p.log.Warn("photo failed", zap.String("key", r.key), zap.Error(r.err))
			continue
		}
		m.Photos[r.key] = r.photo
		if m.Format == "" {
			m.Format = r.photo.Output.Format
		}
		if r.reused {
			reused++
		}
	}

	if len(m.Photos) == 0 {
		return nil, fmt.Errorf("all %d images failed to process", total)
	}
	if len(m.Failures) > 0 {
		p.log.Warn("partial failure", zap.Int("failed", len(m.Failures)), zap.Int("total", total))
	}

	m.Stats.Reused = reused
	m.ComputeStats()
	return m, nil
}
