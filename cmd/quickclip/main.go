// quickclip: clipboard history and keyboard launcher.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "quickclip",
		Short: "Clipboard history with a keyboard launcher",
		Long: `quickclip records what you copy (text and images), keeps the last 100
entries plus up to 3 pinned ones, and lets you browse, re-copy, pin and
delete them from the keyboard.

Run "quickclip serve" to capture in the background and expose the HTTP and
WebSocket API, or "quickclip tui" for an interactive terminal launcher.

Config file search order (first found wins):
  path supplied via --config
  $HOME/.config/quickclip/quickclip.toml
  /etc/quickclip/quickclip.toml

All flags can be set via QUICKCLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newTUICmd(),
		newListCmd(),
		newClearCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("quickclip %s\n", Version)
		},
	}
}
