package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickclip/internal/config"
	"quickclip/internal/server"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Capture the clipboard and serve the HTTP/WebSocket API",
		Long: `Polls the system clipboard, records new text and images in the history and
exposes the launcher over HTTP. View updates are pushed to WebSocket clients
connected to /ws.

Only one instance may run per data directory; pass --replace to stop the
running one first.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String(config.KeyAddr, config.DefaultAddr, "HTTP listen address")
	f.Bool("replace", false, "stop an already running instance")
	f.Bool(config.KeyHeadless, false, "do not touch the system clipboard")
	f.Duration(config.KeyPollBase, 0, "base poll interval (default 1s)")
	f.Duration(config.KeyPollMax, 0, "longest poll interval (default 5s)")
	f.Float64(config.KeyPollFactor, 0, "interval growth factor after quiet cycles (default 1.5)")
	f.Int(config.KeyPollThreshold, 0, "quiet cycles before the interval grows (default 5)")
	f.Int64(config.KeyMaxImageBytes, 0, "largest image to capture in bytes (default 20MB)")
	addStorageFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	cfg, err := loadConfig(v, slog.LevelInfo)
	if err != nil {
		return err
	}

	a, err := openApp(cfg, true)
	if err != nil {
		return err
	}

	srv := server.New(a.svc, server.Config{
		Addr:    cfg.Addr,
		DataDir: cfg.DataDir,
		Replace: v.GetBool("replace"),
	})
	if err := srv.Start(); err != nil {
		a.persister.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		srv.Stop()
		a.persister.Close()
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down")

	if err := srv.Stop(); err != nil {
		slog.Error("error stopping server", "err", err)
	}
	return a.close(context.Background())
}
