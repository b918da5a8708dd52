package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickclip/internal/config"
	"quickclip/internal/server"
)

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every clip, pinned ones included, and clear the clipboard",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindViper(cmd, v)
		},
		RunE: func(_ *cobra.Command, _ []string) error { return runClear(v) },
	}

	f := cmd.Flags()
	f.String(config.KeyAddr, config.DefaultAddr, "address of a running server")
	addStorageFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runClear(v *viper.Viper) error {
	cfg, err := loadConfig(v, slog.LevelWarn)
	if err != nil {
		return err
	}
	ctx := context.Background()

	err = newAPIClient(cfg.Addr).clear(ctx)
	if err != nil && unreachable(err) {
		err = clearOffline(ctx, cfg)
	}
	if err != nil {
		return err
	}
	fmt.Println("history cleared")
	return nil
}

// clearOffline edits the data directory in place. It refuses while a tui
// owns the directory, since that process would write its history back.
func clearOffline(ctx context.Context, cfg *config.Config) error {
	release, err := server.ClaimPID(cfg.DataDir, false)
	if err != nil {
		return err
	}
	defer release()

	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		a.persister.Close()
		return err
	}
	if err := a.svc.ClearClips(ctx); err != nil {
		a.close(ctx)
		return err
	}
	return a.close(ctx)
}
