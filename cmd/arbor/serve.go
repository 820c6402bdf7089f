package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the workspace as a JSON API over HTTP, with live updates over
Server-Sent Events, Prometheus metrics and an OpenAPI description.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := settings.Config.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		metrics := observability.NewMetrics("")
		ws, err := openWorkspace(metrics)
		if err != nil {
			return err
		}
		defer ws.Close()
		logger := ws.Logger()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := ws.Watch(ctx); err != nil {
			if !errors.Is(err, arbor.ErrWatchUnsupported) {
				return err
			}
			logger.Info("Store has no change notifications, serving local changes only")
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: httpAdapter.NewHandler(ws,
				httpAdapter.WithMetrics(metrics),
				httpAdapter.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.ListenAndServe()
		}()

		out := cmd.ErrOrStderr()
		tui.PrintBanner(out)
		cli.PrintSystemMessage(out, "Listening on %s (store: %s)", srv.Addr, settings.Config.Store)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			cli.PrintSystemMessage(out, "Shutting down... Signal: %v", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			cli.PrintSystemMessage(out, "Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from configuration)")
}
