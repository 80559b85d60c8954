package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/G-grbz/monwui/internal/httpapi"
	"github.com/G-grbz/monwui/internal/indexer"
	"github.com/G-grbz/monwui/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr  string
	serveIndex bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve collection lookups and indexer control over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveIndex, "index", false, "start an indexing run on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	vis := &indexer.VisibilityFlag{}
	stopWatch := watchVisibility(vis, a.logger)
	defer stopWatch()

	h := a.newIndexer(vis, metrics.NewIndexObserver())
	defer func() {
		h.Stop()
		<-h.Done()
	}()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	srv := httpapi.New(ctx, a.collections(), h, opts, a.logger).NewHTTPServer(addr)

	if serveIndex {
		h.Start(ctx, opts)
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
