package cmd

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgepass/idphoto/internal/codec"
	"github.com/edgepass/idphoto/internal/manifest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func portrait(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{R: 90, G: 140, B: 200, A: 255}), path))
}

func TestStandardsCommand(t *testing.T) {
	out, err := run(t, "standards", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "saudi-evisa")
	assert.Contains(t, out, "350x450")
	assert.Contains(t, out, "fall back to general-id")

	out, err = run(t, "standards", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "custom"`)
	assert.Contains(t, out, `"target_width"`)
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "me.png")
	portrait(t, in, 800, 900)
	dest := filepath.Join(dir, "out.jpg")

	_, err := run(t, "process", in, "--out", dest, "--standard", "uk", "--face", "400,300",
		"--remove-background", "--framing", "auto", "--format", "jpeg")
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	cfg, format, err := codec.DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 350, cfg.Width)
	assert.Equal(t, 450, cfg.Height)

	_, err = run(t, "process", in, "--out", dest, "--face", "1,2,3")
	assert.ErrorContains(t, err, "exactly two values")
}

func TestBatchAndValidateCommands(t *testing.T) {
	in := t.TempDir()
	portrait(t, filepath.Join(in, "a.png"), 640, 480)
	portrait(t, filepath.Join(in, "sub", "b.jpg"), 500, 700)
	out := t.TempDir()

	report, err := run(t, "batch", in, "--out", out, "--standard", "india", "--workers", "2",
		"--framing", "auto", "--format", "png", "--remove-background=false", "--no-overwrite=false")
	require.NoError(t, err)
	assert.Contains(t, report, "Photos:      2")

	m, err := manifest.ReadJSON(filepath.Join(out, manifest.FileName))
	require.NoError(t, err)
	assert.Equal(t, "india", m.Standard)
	assert.Equal(t, "png", m.Format)
	require.Contains(t, m.Photos, "sub/b")
	assert.Equal(t, 350, m.Photos["sub/b"].Output.Width)

	report, err = run(t, "validate", out, "--hashes")
	require.NoError(t, err)
	assert.Contains(t, report, "Manifest is valid")

	require.NoError(t, os.Remove(filepath.Join(out, filepath.FromSlash(m.Photos["a"].Output.Path))))
	report, err = run(t, "validate", filepath.Join(out, manifest.FileName), "--hashes=false")
	assert.Error(t, err)
	assert.Contains(t, report, "file not found")
}
