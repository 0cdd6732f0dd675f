package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/bridge"
	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/standard"
)

var (
	processOut       string
	processStandard  string
	processFace      []float64
	processRemoveBg  bool
	processFraming   string
	processSuit      string
	processFormat    string
	processModelPath string
)

var processCmd = &cobra.Command{
	Use:   "process <image>",
	Short: "Render one image as a document photo",
	Long: `Decodes the image, frames it to the standard's target size (around
--face when given), optionally replaces the background with white, and
writes the encoded result.

Without --out the result is written next to the input as
<name>.<standard>.<ext>. Use --out - for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "output file, - for stdout")
	processCmd.Flags().StringVarP(&processStandard, "standard", "s", "general-id", "document standard (name or id)")
	processCmd.Flags().Float64SliceVar(&processFace, "face", nil, "face center x,y in source pixels")
	processCmd.Flags().BoolVar(&processRemoveBg, "remove-background", false, "replace the background with white")
	processCmd.Flags().StringVar(&processFraming, "framing", "auto", "auto, resize or crop")
	processCmd.Flags().StringVar(&processSuit, "suit", "", "suit overlay image (accepted, not yet applied)")
	processCmd.Flags().StringVarP(&processFormat, "format", "f", "", "jpeg, png or webp (default from config)")
	processCmd.Flags().StringVar(&processModelPath, "model-path", "", "model directory (default from config)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	input := args[0]

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	req, err := buildRequest(data)
	if err != nil {
		return err
	}

	ec := cfg.Engine
	if processFormat != "" {
		ec.Format = processFormat
	}
	if processModelPath != "" {
		ec.ModelPath = processModelPath
	}
	opts, err := engineOptions(ec)
	if err != nil {
		return err
	}

	host := bridge.NewHost(logger(), opts...)
	host.Init(ec.ModelPath)

	out, err := host.Render(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("process %s: %w", input, err)
	}

	if processOut == "-" {
		_, err := cmd.OutOrStdout().Write(out.Data)
		return err
	}
	dest := processOut
	if dest == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		dest = fmt.Sprintf("%s.%s.%s", base, out.Standard, out.Extension)
	}
	if err := os.WriteFile(dest, out.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger().Debug("wrote photo", zap.String("path", dest), zap.String("mode", string(out.Mode)))
	fmt.Fprintf(cmd.OutOrStdout(), "  ✓ %s → %s (%dx%d, %s, %s)\n",
		input, dest, out.Width, out.Height, out.Mode, formatBytes(int64(len(out.Data))))
	return nil
}

func buildRequest(data []byte) (engine.Request, error) {
	framing, err := geometry.ParseFraming(processFraming)
	if err != nil {
		return engine.Request{}, err
	}
	req := engine.Request{
		Image:            data,
		Standard:         standard.Parse(processStandard),
		RemoveBackground: processRemoveBg,
		Framing:          framing,
	}

	switch len(processFace) {
	case 0:
	case 2:
		x, y := processFace[0], processFace[1]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return engine.Request{}, fmt.Errorf("--face must be finite")
		}
		req.Face = &geometry.FaceCenter{X: x, Y: y}
	default:
		return engine.Request{}, fmt.Errorf("--face takes exactly two values, got %d", len(processFace))
	}

	if processSuit != "" {
		suit, err := os.ReadFile(processSuit)
		if err != nil {
			return engine.Request{}, fmt.Errorf("read suit: %w", err)
		}
		req.Suit = suit
	}
	return req, nil
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
