package manifest

// Manifest is the top-level output of an idphoto batch run.
type Manifest struct {
	Version       int               `json:"version"`
	RunID         string            `json:"run_id"`
	GeneratedAt   string            `json:"generated_at"`
	EngineVersion string            `json:"engine_version"`
	Standard      string            `json:"standard"`
	Format        string            `json:"format"`
	BasePath      string            `json:"base_path"`
	RunInfo       *RunInfo          `json:"run_info,omitempty"`
	Photos        map[string]Photo  `json:"photos"`
	Failures      map[string]string `json:"failures,omitempty"` // key -> error text
	Stats         Stats             `json:"stats"`
}

// RunInfo captures run parameters for diagnostics.
type RunInfo struct {
	Workers          int    `json:"workers"`
	RemoveBackground bool   `json:"remove_background"`
	Framing          string `json:"framing"`
	Quality          int    `json:"quality"`
}

// Photo pairs one source image with the document photo rendered from it.
type Photo struct {
	Source SourceInfo `json:"source"`
	Output Output     `json:"output"`
}

// SourceInfo holds metadata about the input file.
type SourceInfo struct {
	Path   string `json:"path"` // relative to the input directory
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Output is the encoded photo written to disk.
type Output struct {
	Format string `json:"format"`
	Mode   string `json:"mode"` // "crop" or "resize"
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"` // bytes on disk
	Hash   string `json:"hash"` // 16 hex chars of xxhash64
	Path   string `json:"path"` // relative to base_path
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalPhotos      int   `json:"total_photos"`
	Failed           int   `json:"failed,omitempty"`
	Reused           int   `json:"reused,omitempty"` // outputs already on disk, not rewritten
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

// FileName is the manifest name inside an output directory.
const FileName = "idphoto.manifest.json"
