package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/config"
	"github.com/edgepass/idphoto/internal/engine"
	"github.com/edgepass/idphoto/internal/geometry"
	"github.com/edgepass/idphoto/internal/logging"
)

var (
	version    = "0.1.0"
	verbose    bool
	configPath string
	cfg        = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "idphoto",
	Short: "Document photo engine for passport, visa and ID standards",
	Long: `idphoto turns an arbitrary portrait into a document photo: exact
target size for the chosen standard, optional white background, encoded
as JPEG (or PNG/WebP).

Standards: saudi-evisa, us, schengen, general-id, uk, india, custom.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"idphoto %s, %s (%s/%s, %s)\n",
		version, engine.Version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

func loadConfig(_ *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		c.Log.Level = "debug"
	}
	cfg = c
	logging.Init(cfg.Log)
	return nil
}

// engineOptions translates the engine section of the config.
func engineOptions(c config.EngineConfig) ([]engine.Option, error) {
	rs, err := geometry.NewResampler(c.Resampler)
	if err != nil {
		return nil, err
	}
	policy, err := geometry.ParseDegeneratePolicy(c.DegeneratePolicy)
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithLogger(logging.L()),
		engine.WithQuality(c.Quality),
		engine.WithFormat(c.Format),
		engine.WithResampler(rs),
		engine.WithDegeneratePolicy(policy),
	}, nil
}

func logger() *zap.Logger { return logging.L() }
