package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgepass/idphoto/internal/bridge"
	"github.com/edgepass/idphoto/internal/cache"
	"github.com/edgepass/idphoto/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP",
	Long: `Starts an HTTP server:

  POST /v1/photos     multipart: image, suit, standard, face_x, face_y,
                      remove_background, framing
  GET  /v1/standards
  GET  /healthz
  GET  /version`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logger()
	defer log.Sync() //nolint:errcheck

	opts, err := engineOptions(cfg.Engine)
	if err != nil {
		return err
	}
	host := bridge.NewHost(log, opts...)
	host.Init(cfg.Engine.ModelPath)

	srvOpts := []server.Option{
		server.WithLogger(log),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	}
	if cfg.Cache.Enabled {
		dialCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		rc, err := cache.Dial(dialCtx, cfg.Cache.Addr, cfg.Cache.DB)
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Cache.Addr, err)
		}
		defer rc.Close()
		srvOpts = append(srvOpts, server.WithCache(rc, cfg.Cache.TTL))
		log.Info("result cache enabled", zap.String("addr", cfg.Cache.Addr), zap.Duration("ttl", cfg.Cache.TTL))
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.New(host, srvOpts...).ListenAndServe(ctx, addr, cfg.Server.ShutdownTimeout)
}
