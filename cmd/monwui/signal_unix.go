//go:build unix

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/G-grbz/monwui/internal/indexer"
)

// watchVisibility toggles vis on SIGUSR1 so a host process can pause a
// non-aggressive run while it is in the foreground.
func watchVisibility(vis *indexer.VisibilityFlag, logger *slog.Logger) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigs:
				hidden := vis.Toggle()
				logger.Info("visibility toggled", "hidden", hidden)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
