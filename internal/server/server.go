// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/bridge"
	"github.com/edgepass/idphoto/internal/cache"
)

// DefaultMaxUploadBytes caps a request body when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// Server serves POST /v1/photos and the read-only metadata routes.
type Server struct {
	host      *bridge.Host
	cache     cache.Cache
	cacheTTL  time.Duration
	maxUpload int64
	log       *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCache stores rendered photos in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) { s.cache, s.cacheTTL = c, ttl }
}

// WithMaxUploadBytes limits the request body size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a Server on top of an initialized host.
func New(host *bridge.Host, opts ...Option) *Server {
	s := &Server{
		host:      host,
		maxUpload: DefaultMaxUploadBytes,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("http")
	return s
}

// Router returns the gin engine with every route and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.maxUpload
	r.Use(requestID(), accessLog(s.log), recovery(s.log))

	r.GET("/healthz", s.health)
	r.GET("/version", s.version)

	v1 := r.Group("/v1")
	v1.GET("/standards", s.standards)
	v1.POST("/photos", s.createPhoto)
	return r
}

// Serve runs an http.Server on ln until ctx is done, then shuts it down
// within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}
