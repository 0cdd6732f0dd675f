package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/bridge"
	"github.com/edgepass/idphoto/internal/cache"
	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/hasher"
	"github.com/edgepass/idphoto/internal/logging"
	"github.com/edgepass/idphoto/internal/standard"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const cacheKeyPrefix = "idphoto"

// Response headers describing a rendered photo.
const (
	HeaderStandard = "X-Photo-Standard"
	HeaderMode     = "X-Photo-Mode"
	HeaderCache    = "X-Cache"
)

// photoForm is the multipart body of POST /v1/photos besides the files.
type photoForm struct {
	Standard         string   `form:"standard"`
	FaceX            *float64 `form:"face_x"`
	FaceY            *float64 `form:"face_y"`
	RemoveBackground bool     `form:"remove_background"`
	Framing          string   `form:"framing" binding:"omitempty,oneof=auto resize crop face"`
}

// cachedPhoto is what the result cache stores per key.
type cachedPhoto struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
	Mode        string `json:"mode"`
	Standard    string `json:"standard"`
}

type standardInfo struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	TopMarginRatio float64 `json:"top_margin_ratio"`
	AspectRatio    float64 `json:"aspect_ratio"`
}

func (s *Server) health(c *gin.Context) {
	if !s.host.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.host.Version()})
}

func (s *Server) standards(c *gin.Context) {
	all := standard.All()
	out := make([]standardInfo, 0, len(all))
	for _, st := range all {
		cfg := standard.Resolve(st)
		out = append(out, standardInfo{
			ID:             int(st),
			Name:           st.String(),
			Width:          cfg.TargetWidth,
			Height:         cfg.TargetHeight,
			TopMarginRatio: cfg.TopMarginRatio,
			AspectRatio:    cfg.AspectRatio(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"standards": out})
}

func (s *Server) createPhoto(c *gin.Context) {
	reqID := c.GetString(ctxRequestID)
	log := logging.WithOperation(s.log, "photos.create", reqID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	if err := c.Request.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			abort(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", s.maxUpload))
			return
		}
		abort(c, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}

	var form photoForm
	if err := c.ShouldBind(&form); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if (form.FaceX == nil) != (form.FaceY == nil) {
		abort(c, http.StatusBadRequest, "face_x and face_y must be given together")
		return
	}

	img, err := formBytes(c, "image")
	if err != nil {
		abort(c, http.StatusBadRequest, "image file is required")
		return
	}
	suit, err := formBytes(c, "suit")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		abort(c, http.StatusBadRequest, "unable to read suit")
		return
	}

	framing, _ := geometry.ParseFraming(form.Framing)
	req := engine.Request{
		Image:            img,
		Standard:         standard.Parse(form.Standard),
		Suit:             suit,
		RemoveBackground: form.RemoveBackground,
		Framing:          framing,
	}
	if form.FaceX != nil {
		req.Face = &geometry.FaceCenter{X: *form.FaceX, Y: *form.FaceY}
	}

	key := s.cacheKey(req)
	if hit, ok := s.lookup(c.Request.Context(), key, log); ok {
		c.Header(HeaderCache, "HIT")
		c.Header(HeaderStandard, hit.Standard)
		c.Header(HeaderMode, hit.Mode)
		c.Data(http.StatusOK, hit.ContentType, hit.Data)
		return
	}

	out, err := s.host.Render(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("render failed", zap.Error(err))
		}
		_ = c.Error(err)
		abort(c, status, err.Error())
		return
	}

	s.store(c.Request.Context(), key, out, log)
	c.Header(HeaderCache, "MISS")
	c.Header(HeaderStandard, out.Standard.String())
	c.Header(HeaderMode, string(out.Mode))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (s *Server) cacheKey(req engine.Request) string {
	if s.cache == nil {
		return ""
	}
	face := "none"
	if req.Face != nil {
		face = strconv.FormatFloat(req.Face.X, 'g', -1, 64) + "," + strconv.FormatFloat(req.Face.Y, 'g', -1, 64)
	}
	format := ""
	if e := s.host.Engine(); e != nil {
		format = e.Format()
	}
	return hasher.CacheKey(cacheKeyPrefix, req.Image,
		req.Standard.String(), face, strconv.FormatBool(req.RemoveBackground), req.Framing.String(), format)
}

func (s *Server) lookup(ctx context.Context, key string, log *zap.Logger) (*cachedPhoto, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var p cachedPhoto
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Data) == 0 {
		log.Warn("discarding malformed cache entry", zap.String("key", key))
		return nil, false
	}
	return &p, true
}

func (s *Server) store(ctx context.Context, key string, out *engine.Output, log *zap.Logger) {
	if s.cache == nil || key == "" {
		return
	}
	raw, err := json.Marshal(cachedPhoto{
		Data:        out.Data,
		ContentType: out.ContentType,
		Mode:        string(out.Mode),
		Standard:    out.Standard.String(),
	})
	if err != nil {
		log.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrDecode), errors.Is(err, engine.ErrGeometryDegenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": c.GetString(ctxRequestID),
	})
}

func formBytes(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return readPart(fh)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
