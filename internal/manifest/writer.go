package manifest

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/ksuid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// New creates an empty manifest for one run.
func New(standardName, format, engineVersion string) *Manifest {
	return &Manifest{
		Version:       SupportedManifestVersion,
		RunID:         ksuid.New().String(),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		EngineVersion: engineVersion,
		Standard:      standardName,
		Format:        format,
		BasePath:      "./",
		Photos:        make(map[string]Photo),
	}
}

// ComputeStats recalculates aggregate statistics from photos and failures.
// Reused is carried over since it cannot be derived.
func (m *Manifest) ComputeStats() {
	s := Stats{Reused: m.Stats.Reused}
	s.TotalPhotos = len(m.Photos)
	s.Failed = len(m.Failures)
	for _, p := range m.Photos {
		s.TotalInputBytes += p.Source.Size
		s.TotalOutputBytes += p.Output.Size
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file with stable ordering.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a manifest. Unknown fields are ignored.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
