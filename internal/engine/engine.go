// Package engine turns an arbitrary photo into a document photo:
// decode, frame to the standard's size, optionally isolate the subject with
// the ellipse mask, composite onto white, encode.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/codec"
	"github.com/edgepass/idphoto/internal/composite"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/mask"
	"github.com/edgepass/idphoto/internal/standard"
)

// Version is reported to host applications.
const Version = "EdgePass Core v0.1.0"

// Request is one processing call. All buffers belong to the caller and are
// only read.
type Request struct {
	Image    []byte
	Standard standard.Standard
	// Face is an optional face center in source pixels.
	Face *geometry.FaceCenter
	// Suit is an optional overlay payload; accepted and currently ignored.
	Suit             []byte
	RemoveBackground bool
	Framing          geometry.Framing
}

// Output is an encoded document photo plus what produced it.
type Output struct {
	Data        []byte
	Width       int
	Height      int
	Format      string
	ContentType string
	Extension   string
	Mode        geometry.Mode
	Standard    standard.Standard
}

// Engine is a long-lived, immutable processing handle. Every call works on
// its own buffers, so one Engine can serve any number of goroutines.
type Engine struct {
	modelPath string
	framer    geometry.Framer
	encoder   codec.Encoder
	quality   int
	log       *zap.Logger
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	log       *zap.Logger
	quality   int
	format    string
	resampler geometry.Resampler
	policy    geometry.DegeneratePolicy
	registry  *codec.Registry
	encoder   codec.Encoder
}

func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.log = l } }

// WithQuality sets the lossy encoder quality (1-100).
func WithQuality(q int) Option { return func(s *settings) { s.quality = q } }

// WithFormat selects the output format; unknown or unavailable formats fall back to JPEG.
func WithFormat(f string) Option { return func(s *settings) { s.format = f } }

func WithResampler(r geometry.Resampler) Option { return func(s *settings) { s.resampler = r } }

func WithDegeneratePolicy(p geometry.DegeneratePolicy) Option {
	return func(s *settings) { s.policy = p }
}

func WithRegistry(r *codec.Registry) Option { return func(s *settings) { s.registry = r } }

// WithEncoder bypasses the registry and format lookup.
func WithEncoder(enc codec.Encoder) Option { return func(s *settings) { s.encoder = enc } }

// New creates an engine. modelPath is stored for a future segmentation model
// and is not read by the current pipeline.
func New(modelPath string, opts ...Option) *Engine {
	s := settings{
		log:     zap.NewNop(),
		quality: codec.DefaultQuality,
		format:  "jpeg",
	}
	for _, o := range opts {
		o(&s)
	}
	if s.registry == nil && s.encoder == nil {
		s.registry = codec.NewRegistry()
	}
	if s.resampler == nil {
		s.resampler = geometry.DefaultResampler()
	}

	enc := s.encoder
	if enc == nil {
		var ok bool
		enc, ok = s.registry.Resolve(s.format)
		if !ok {
			s.log.Warn("output format unavailable, using jpeg",
				zap.String("format", s.format), zap.String("registry", s.registry.String()))
		}
	}

	e := &Engine{
		modelPath: modelPath,
		framer:    geometry.Framer{Resampler: s.resampler, Policy: s.policy},
		encoder:   enc,
		quality:   s.quality,
		log:       s.log.Named("engine"),
	}
	e.log.Info("engine initialized",
		zap.String("model_path", modelPath),
		zap.String("format", enc.Format()),
		zap.Int("quality", s.quality),
		zap.String("resampler", s.resampler.Name()),
		zap.Stringer("degenerate_policy", s.policy))
	return e
}

// ModelPath returns the path given to New.
func (e *Engine) ModelPath() string { return e.modelPath }

// Format returns the output format name.
func (e *Engine) Format() string { return e.encoder.Format() }

// Process runs the pipeline and returns the encoded photo.
func (e *Engine) Process(ctx context.Context, req Request) ([]byte, error) {
	out, err := e.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Render runs the pipeline and returns the encoded photo with metadata.
// A panic anywhere in the pipeline is reported as ErrInternal and leaves
// the engine usable.
func (e *Engine) Render(ctx context.Context, req Request) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic during processing",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			out = nil
			err = stageErr(StageInternal, ErrInternal, fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	img, err := codec.Decode(req.Image)
	if err != nil {
		return nil, stageErr(StageDecode, ErrDecode, err)
	}
	b := img.Bounds()

	cfg := standard.Resolve(req.Standard)
	e.log.Debug("processing",
		zap.Stringer("standard", req.Standard),
		zap.Int("src_width", b.Dx()),
		zap.Int("src_height", b.Dy()),
		zap.Int("target_width", cfg.TargetWidth),
		zap.Int("target_height", cfg.TargetHeight),
		zap.Bool("face_hint", req.Face != nil),
		zap.Bool("remove_background", req.RemoveBackground),
		zap.Int("suit_bytes", len(req.Suit)))

	framed, err := e.framer.Frame(img, cfg, req.Face, req.Framing)
	if err != nil {
		if errors.Is(err, geometry.ErrGeometryDegenerate) {
			return nil, stageErr(StageFrame, ErrGeometryDegenerate, err)
		}
		return nil, stageErr(StageFrame, ErrInternal, err)
	}

	var m *image.Gray
	if req.RemoveBackground {
		fb := framed.Image.Bounds()
		m = mask.Ellipse(fb.Dx(), fb.Dy())
	}
	final := composite.OntoWhite(framed.Image, m)

	data, err := e.encoder.Encode(final, e.quality)
	if err != nil {
		return nil, stageErr(StageEncode, ErrEncode, err)
	}
	if len(data) == 0 {
		return nil, stageErr(StageEncode, ErrEncode, errors.New("encoder produced no bytes"))
	}

	fb := final.Bounds()
	fields := []zap.Field{
		zap.String("mode", string(framed.Mode)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if m != nil {
		fields = append(fields, zap.Float64("mask_coverage", mask.Coverage(m)))
	}
	e.log.Debug("processed", fields...)

	return &Output{
		Data:        data,
		Width:       fb.Dx(),
		Height:      fb.Dy(),
		Format:      e.encoder.Format(),
		ContentType: e.encoder.ContentType(),
		Extension:   e.encoder.Extension(),
		Mode:        framed.Mode,
		Standard:    req.Standard,
	}, nil
}
