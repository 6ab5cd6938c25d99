package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/cli"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Host machine instances over HTTP",
		Long: `Loads the definition and serves a JSON API for creating machine instances,
sending them events and reading their journals. Transitions are streamed
over SSE and counted at /metrics.

Set FSM_REDIS_ADDR to keep the journal in Redis and guard transitions with
a distributed lock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := a.cfg.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			s, err := newStack(a.cfg, a.logger, args[0])
			if err != nil {
				return err
			}
			defer func() {
				if err := s.close(); err != nil {
					a.logger.Warn("close failed", "err", err)
				}
			}()

			srv := &http.Server{
				Addr:              addr,
				Handler:           s.handler(a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("starting server", "addr", srv.Addr, "machine", s.doc.Name)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case <-sigCtx.Done():
				a.logger.Info("start shutdown", "signal", sigCtx.Signal())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					a.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				a.logger.Info("server stopped gracefully")
				return nil
			}
		},
	}

	cmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides FSM_ADDR)")
	return cmd
}
