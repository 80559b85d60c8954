package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/indexer"
	"github.com/G-grbz/monwui/internal/metrics"
	"github.com/G-grbz/monwui/internal/tui"
)

var (
	indexMode       string
	indexAggressive bool
	indexPlain      bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one indexing cycle and record collection memberships",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexMode, "mode", "", "indexing mode: boxset or movie (default from config)")
	indexCmd.Flags().BoolVar(&indexAggressive, "aggressive", false, "skip idle delays and ignore pause requests")
	indexCmd.Flags().BoolVar(&indexPlain, "plain", false, "log progress lines instead of the interactive view")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.indexerOptions()
	if err != nil {
		return err
	}
	if indexMode != "" {
		if opts.Mode, err = indexer.ParseMode(indexMode); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("aggressive") {
		opts.Aggressive = indexAggressive
	}

	vis := &indexer.VisibilityFlag{}
	stopWatch := watchVisibility(vis, a.logger)
	defer stopWatch()

	interactive := !indexPlain && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		return runIndexTUI(ctx, a, vis, opts)
	}

	h := a.newIndexer(vis, metrics.NewIndexObserver(), plainObserver{})
	if !h.Start(ctx, opts) {
		return fmt.Errorf("indexer is already running")
	}
	select {
	case <-h.Done():
	case <-ctx.Done():
		h.Stop()
		<-h.Done()
	}
	printSummary(h.Progress())
	return nil
}

func runIndexTUI(ctx context.Context, a *app, vis *indexer.VisibilityFlag, opts indexer.Options) error {
	updates := make(chan domain.IndexProgress, 16)
	h := a.newIndexer(vis, metrics.NewIndexObserver(), tui.NewChannelObserver(updates))

	model := tui.NewModel("Indexing "+a.cfg.Server.URL, updates, tui.Controls{
		Stop:        h.Stop,
		TogglePause: vis.Toggle,
	})
	p := tea.NewProgram(model)

	if !h.Start(ctx, opts) {
		return fmt.Errorf("indexer is already running")
	}
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-h.Done():
		}
	}()

	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		h.Stop()
		<-h.Done()
		return fmt.Errorf("TUI error: %w", err)
	}
	h.Stop()
	<-h.Done()
	printSummary(h.Progress())
	return nil
}

// plainObserver prints one line per progress update.
type plainObserver struct{}

func (plainObserver) OnProgress(p domain.IndexProgress) {
	switch {
	case p.Done:
		return
	case p.Error != nil:
		fmt.Fprintf(os.Stderr, "%-8s cursor %s: %v (retrying)\n", p.Phase, humanize.Comma(int64(p.Cursor)), p.Error)
	case p.Paused:
		fmt.Printf("%-8s paused\n", p.Phase)
	default:
		fmt.Printf("%-8s cursor %s  collections %s  mapped %s  negative %s\n",
			p.Phase,
			humanize.Comma(int64(p.Cursor)),
			humanize.Comma(int64(p.Collections)),
			humanize.Comma(int64(p.Positive)),
			humanize.Comma(int64(p.Negative)))
	}
}

func printSummary(p domain.IndexProgress) {
	fmt.Printf("Collections synced: %s\n", humanize.Comma(int64(p.Collections)))
	fmt.Printf("Movies mapped:      %s\n", humanize.Comma(int64(p.Positive)))
	fmt.Printf("Negative entries:   %s\n", humanize.Comma(int64(p.Negative)))
	if p.Error != nil {
		fmt.Printf("Last error:         %v\n", p.Error)
	}
}
