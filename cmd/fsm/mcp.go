package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/cli"
	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/pkg/adapters/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp FILE",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Hosts machine instances of the definition as an MCP server, so that AI
agents can create instances, send them events and inspect the graph.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			addr := a.cfg.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}
			baseURL, _ := cmd.Flags().GetString("base-url")

			// Keep logs off stdout; it carries JSON-RPC in stdio mode.
			level, _ := a.cfg.Level()
			logger := logging.NewWithWriter(os.Stderr, level)
			log.SetOutput(os.Stderr)

			s, err := newStack(a.cfg, logger, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			srv := mcp.NewServer(s.manager, mcp.WithLogger(logger), mcp.WithName(s.doc.Name))

			switch transport {
			case "stdio":
				logger.Info("starting MCP server (stdio)", "machine", s.doc.Name)
				return srv.ServeStdio()
			case "sse":
				if baseURL == "" {
					baseURL = "http://localhost" + addr
				}
				sigCtx := cli.NewSignalContext(cmd.Context())
				defer sigCtx.Cancel()

				if err := srv.ServeSSE(sigCtx, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
				logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().String("addr", ":8080", "Address to listen on (only for SSE, overrides FSM_ADDR)")
	cmd.Flags().String("base-url", "", "Public base URL announced to SSE clients (default http://localhost<addr>)")
	return cmd
}
