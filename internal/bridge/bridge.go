// Package bridge is the byte-in/byte-out surface exposed to host
// applications (mobile bindings, the HTTP server, the CLI). It owns the
// engine handle and converts every failure, including panics, into an error
// value.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/logging"
	"github.com/edgepass/idphoto/internal/standard"
)

// ErrNotInitialized is returned by Generate before Init has succeeded.
var ErrNotInitialized = errors.New("engine not initialized")

// Host holds the engine handle for one host application. The zero value is
// ready to use; Init installs the engine.
type Host struct {
	eng  atomic.Pointer[engine.Engine]
	opts []engine.Option
	log  *zap.Logger
}

// NewHost returns a Host whose engines are built with opts.
func NewHost(log *zap.Logger, opts ...engine.Option) *Host {
	if log == nil {
		log = logging.L()
	}
	return &Host{opts: opts, log: log.Named("bridge")}
}

// Init builds the engine and installs it. modelPath is stored on the engine
// for a future segmentation model. Calling Init again replaces the handle;
// in-flight calls finish on the engine they started with.
func (h *Host) Init(modelPath string) *engine.Engine {
	opts := append([]engine.Option{engine.WithLogger(h.logger())}, h.opts...)
	e := engine.New(modelPath, opts...)
	h.eng.Store(e)
	h.logger().Info("engine ready", zap.String("model_path", modelPath))
	return e
}

// Engine returns the installed engine, or nil.
func (h *Host) Engine() *engine.Engine { return h.eng.Load() }

// Ready reports whether Init has run.
func (h *Host) Ready() bool { return h.eng.Load() != nil }

// Version returns the core version string.
func (h *Host) Version() string { return engine.Version }

// Generate is the host entry point. standardID uses the host integer ids
// (unknown ids fall back to the general ID standard); faceX == faceY == -1
// means no face hint; suit is accepted and ignored. The returned slice is
// never empty on success and is owned by the caller.
func (h *Host) Generate(ctx context.Context, image []byte, standardID int, suit []byte, faceX, faceY float32, removeBackground bool) (out []byte, err error) {
	req := engine.Request{
		Image:            image,
		Standard:         standard.FromID(standardID),
		Face:             geometry.HostFaceCenter(faceX, faceY),
		Suit:             suit,
		RemoveBackground: removeBackground,
	}
	return h.Submit(ctx, req)
}

// Submit runs an already-built request against the installed engine.
func (h *Host) Submit(ctx context.Context, req engine.Request) (out []byte, err error) {
	o, err := h.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Data, nil
}

// Render is Submit with output metadata.
func (h *Host) Render(ctx context.Context, req engine.Request) (out *engine.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().Error("panic at host boundary", zap.Any("panic", r))
			out, err = nil, fmt.Errorf("%w: %v", engine.ErrInternal, r)
		}
	}()

	e := h.eng.Load()
	if e == nil {
		h.logger().Error("generate called before init")
		return nil, ErrNotInitialized
	}

	log := h.logger().With(
		zap.Stringer("standard", req.Standard),
		zap.Int("input_bytes", len(req.Image)),
		zap.Bool("remove_background", req.RemoveBackground))

	o, err := e.Render(ctx, req)
	if err != nil {
		log.Warn("processing failed", zap.Error(err))
		return nil, err
	}
	log.Info("processing succeeded", zap.Int("output_bytes", len(o.Data)))
	return o, nil
}

func (h *Host) logger() *zap.Logger {
	if h.log == nil {
		return logging.L().Named("bridge")
	}
	return h.log
}
