package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexer checkpoint and cache counts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cache.Enabled() {
		return fmt.Errorf("cache is unavailable")
	}

	scope := a.scope()
	state := a.cache.LoadIndexerState(ctx, scope)
	stats, err := a.cache.Stats(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	lastCycle := "never"
	if state.DoneAt > 0 {
		lastCycle = humanize.Time(time.UnixMilli(state.DoneAt))
	}

	fmt.Printf("Server:        %s\n", a.cfg.Server.URL)
	fmt.Printf("Scope:         %s\n", scope.Key())
	fmt.Printf("Phase:         %s\n", state.Phase)
	fmt.Printf("Boxset cursor: %s\n", humanize.Comma(int64(state.BoxsetCursor)))
	fmt.Printf("Movie cursor:  %s\n", humanize.Comma(int64(state.MovieCursor)))
	fmt.Printf("Seen this run: %s\n", humanize.Comma(int64(len(state.SeenIDs()))))
	fmt.Printf("Last cycle:    %s\n", lastCycle)
	fmt.Println()
	fmt.Printf("Entities:      %s\n", humanize.Comma(int64(stats.Entities)))
	fmt.Printf("Collections:   %s\n", humanize.Comma(int64(stats.Collections)))
	fmt.Printf("Memberships:   %s (%s negative)\n", humanize.Comma(int64(stats.Memberships)), humanize.Comma(int64(stats.Negatives)))
	return nil
}
