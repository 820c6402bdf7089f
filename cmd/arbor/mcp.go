package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the workspace to AI agents as MCP tools and resources.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port := settings.Config.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()
		logger := ws.Logger()

		srv := mcp.NewServer(ws, logger)

		switch transport {
		case "stdio":
			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			logger.Info("Starting arbor MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			if err := ws.Watch(ctx); err != nil && !errors.Is(err, arbor.ErrWatchUnsupported) {
				return err
			}
			logger.Info("Starting arbor MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
