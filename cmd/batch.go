package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgepass/idphoto/internal/bridge"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/manifest"
	"github.com/edgepass/idphoto/internal/pipeline"
	"github.com/edgepass/idphoto/internal/standard"
)

var (
	batchOutDir      string
	batchStandard    string
	batchWorkers     int
	batchRemoveBg    bool
	batchFraming     string
	batchFormat      string
	batchNoOverwrite bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Render every image in a directory and write a manifest",
	Long: `Scans the input directory for images (png, jpg, jpeg, webp, gif, bmp,
tiff), renders each one to the chosen standard and writes a manifest.

Output filenames are content-addressed: <key>.<standard>.<hash>.<ext>`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "./idphoto_out", "output directory")
	batchCmd.Flags().StringVarP(&batchStandard, "standard", "s", "general-id", "document standard (name or id)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel workers (0 = config, then NumCPU)")
	batchCmd.Flags().BoolVar(&batchRemoveBg, "remove-background", false, "replace the background with white")
	batchCmd.Flags().StringVar(&batchFraming, "framing", "auto", "auto, resize or crop")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "", "jpeg, png or webp (default from config)")
	batchCmd.Flags().BoolVar(&batchNoOverwrite, "no-overwrite", false, "keep outputs that already exist")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	start := time.Now()

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(batchOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	framing, err := geometry.ParseFraming(batchFraming)
	if err != nil {
		return err
	}

	ec := cfg.Engine
	if batchFormat != "" {
		ec.Format = batchFormat
	}
	opts, err := engineOptions(ec)
	if err != nil {
		return err
	}
	host := bridge.NewHost(logger(), opts...)
	host.Init(ec.ModelPath)

	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		InputDir:         absInput,
		OutputDir:        absOutput,
		Standard:         standard.Parse(batchStandard),
		Framing:          framing,
		RemoveBackground: batchRemoveBg,
		Workers:          workers,
		Quality:          ec.Quality,
		NoOverwrite:      batchNoOverwrite || cfg.Batch.NoOverwrite,
	}, host, logger())

	m, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, manifest.FileName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printBatchReport(cmd, m, time.Since(start))
	return nil
}

func printBatchReport(cmd *cobra.Command, m *manifest.Manifest, elapsed time.Duration) {
	w := cmd.OutOrStdout()
	s := m.Stats

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Run:         %s\n", m.RunID)
	fmt.Fprintf(w, "  Standard:    %s (%s)\n", m.Standard, m.Format)
	fmt.Fprintf(w, "  Photos:      %d\n", s.TotalPhotos)
	if s.Reused > 0 {
		fmt.Fprintf(w, "  Reused:      %d (already on disk)\n", s.Reused)
	}
	fmt.Fprintf(w, "  Input size:  %s\n", formatBytes(s.TotalInputBytes))
	fmt.Fprintf(w, "  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Fprintf(w, "  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.RunInfo != nil {
		fmt.Fprintf(w, "  Workers:     %d\n", m.RunInfo.Workers)
	}

	if len(m.Failures) > 0 {
		keys := make([]string, 0, len(m.Failures))
		for k := range m.Failures {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Failed (%d):\n", len(keys))
		for _, k := range keys {
			fmt.Fprintf(w, "    ✗ %s: %s\n", k, m.Failures[k])
		}
	}
	fmt.Fprintln(w)
}
