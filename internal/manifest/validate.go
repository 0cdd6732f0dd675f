package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/edgepass/idphoto/internal/hasher"
)

// Validate checks m against the files under baseDir and returns one message
// per problem. When checkHash is set every output is re-hashed.
func Validate(m *Manifest, baseDir string, checkHash bool) []string {
	var errs []string

	if m.Version != SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}
	if m.RunID == "" {
		errs = append(errs, "missing run_id")
	}

	keys := make([]string, 0, len(m.Photos))
	for k := range m.Photos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seenPaths := map[string]string{}
	for _, key := range keys {
		p := m.Photos[key]
		if p.Source.Width <= 0 || p.Source.Height <= 0 {
			errs = append(errs, fmt.Sprintf("photo %q: invalid source dimensions %dx%d",
				key, p.Source.Width, p.Source.Height))
		}

		o := p.Output
		if o.Format == "" {
			errs = append(errs, fmt.Sprintf("photo %q: empty output format", key))
		}
		if o.Mode != "crop" && o.Mode != "resize" {
			errs = append(errs, fmt.Sprintf("photo %q: unknown mode %q", key, o.Mode))
		}
		if o.Width <= 0 || o.Height <= 0 {
			errs = append(errs, fmt.Sprintf("photo %q: invalid output dimensions %dx%d", key, o.Width, o.Height))
		}
		if o.Hash == "" {
			errs = append(errs, fmt.Sprintf("photo %q: missing hash", key))
		}
		if o.Path == "" {
			errs = append(errs, fmt.Sprintf("photo %q: missing path", key))
			continue
		}

		if prev, dup := seenPaths[o.Path]; dup {
			errs = append(errs, fmt.Sprintf("photo %q: path %q already used by %q", key, o.Path, prev))
		}
		seenPaths[o.Path] = key

		fullPath := filepath.Join(baseDir, filepath.FromSlash(o.Path))
		info, err := os.Stat(fullPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("photo %q: file not found: %s", key, o.Path))
			continue
		}
		if o.Size > 0 && info.Size() != o.Size {
			errs = append(errs, fmt.Sprintf("photo %q: size mismatch: manifest=%d, disk=%d", key, o.Size, info.Size()))
		}
		if checkHash && o.Hash != "" {
			data, err := os.ReadFile(fullPath)
			if err != nil {
				errs = append(errs, fmt.Sprintf("photo %q: read %s: %v", key, o.Path, err))
			} else if got := hasher.ContentHash(data, len(o.Hash)); got != o.Hash {
				errs = append(errs, fmt.Sprintf("photo %q: hash mismatch: manifest=%s, disk=%s", key, o.Hash, got))
			}
		}
	}

	if m.Stats.TotalPhotos != len(m.Photos) {
		errs = append(errs, fmt.Sprintf("stats.total_photos mismatch: %d != %d", m.Stats.TotalPhotos, len(m.Photos)))
	}
	if m.Stats.Failed != len(m.Failures) {
		errs = append(errs, fmt.Sprintf("stats.failed mismatch: %d != %d", m.Stats.Failed, len(m.Failures)))
	}

	return errs
}
