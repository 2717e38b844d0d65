package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	var transport, addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the loaded families as MCP tools, so agents can list, describe, parse
and convert messages.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := openStore(a.cfg.Store)
			if err != nil {
				return err
			}
			defer seq.close()

			srv := mcp.NewServer(a.families, a.logger,
				merits.WithLineSeparator(a.cfg.LineSeparator),
				merits.WithLockTTL(a.cfg.Store.LockTTL),
				merits.WithSequenceStore(seq.store),
				merits.WithLocker(seq.locker),
			)

			switch transport {
			case "stdio":
				a.logger.Info("starting merits MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				if addr == "" {
					addr = a.cfg.Addr
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := srv.ServeSSE(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				a.logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on, sse only (default from config)")
	return cmd
}
