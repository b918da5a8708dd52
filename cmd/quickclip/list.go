package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickclip/internal/config"
	"quickclip/internal/history"
	"quickclip/pkg/types"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "Print pinned and recent clips",
		Long: `Prints the history, pinned entries first. The optional query filters
by a case-insensitive substring of the text.

The running server is asked first; without one the history is read from
the data directory.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runList(v, query)
		},
	}

	f := cmd.Flags()
	f.String(config.KeyAddr, config.DefaultAddr, "address of a running server")
	f.Bool("json", false, "output raw JSON")
	f.Int("width", 60, "preview width")
	addStorageFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runList(v *viper.Viper, query string) error {
	cfg, err := loadConfig(v, slog.LevelWarn)
	if err != nil {
		return err
	}
	ctx := context.Background()

	clips, err := newAPIClient(cfg.Addr).clips(ctx, query)
	if err != nil {
		if !unreachable(err) {
			return err
		}
		slog.Debug("no running server, reading history directly", "addr", cfg.Addr)
		if clips, err = listOffline(ctx, cfg, query); err != nil {
			return err
		}
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(clips)
	}
	printClips(os.Stdout, clips, v.GetInt("width"))
	return nil
}

// listOffline reads the stored history without writing it back, so a
// running tui keeps ownership of the data directory.
func listOffline(ctx context.Context, cfg *config.Config, query string) ([]types.Entry, error) {
	a, err := openApp(cfg, false)
	if err != nil {
		return nil, err
	}
	clips, err := readClips(ctx, a.store, query)
	return clips, errors.Join(err, a.persister.Close())
}

func readClips(ctx context.Context, store *history.Store, query string) ([]types.Entry, error) {
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store.Filter(query), nil
}

func printClips(w io.Writer, clips []types.Entry, width int) {
	if len(clips) == 0 {
		fmt.Fprintln(w, "no clips")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPIN\tUSES\tLAST USED\tPREVIEW")
	for _, e := range clips {
		pin := ""
		if e.Pinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID,
			e.Kind,
			pin,
			e.UseCount,
			e.LastUsedAt.Local().Format(time.DateTime),
			strings.ReplaceAll(e.Preview(width), "\t", " "),
		)
	}
	tw.Flush()
}
