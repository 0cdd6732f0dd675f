package codec

import (
	"fmt"
	"strings"
)

// Registry holds the encoders usable on this host.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}

	all := []Encoder{
		&JPEGEncoder{},
		&PNGEncoder{},
		&WebPEncoder{},
	}

	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}

	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[normalizeFormat(format)]
}

// Resolve returns the encoder for format, falling back to JPEG.
// ok is false when the fallback was taken.
func (r *Registry) Resolve(format string) (enc Encoder, ok bool) {
	if format == "" {
		return r.encoders["jpeg"], true
	}
	if e := r.Get(format); e != nil {
		return e, true
	}
	return r.encoders["jpeg"], false
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range []string{"jpeg", "png", "webp"} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}

func normalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}
