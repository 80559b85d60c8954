package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "monwui",
	Short:         "Cache movie collection memberships from a Jellyfin server",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: OS config dir, then ./config.yaml)")

	rootCmd.AddCommand(
		indexCmd,
		statusCmd,
		lookupCmd,
		membersCmd,
		findCmd,
		purgeCmd,
		serveCmd,
		pickCmd,
		genresCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
