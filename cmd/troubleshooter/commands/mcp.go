package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moolen/troubleshooter/internal/logging"
	"github.com/moolen/troubleshooter/internal/mcp"
	"github.com/spf13/cobra"
)

type mcpOptions struct {
	configFlags

	runbooks     string
	transport    string
	httpAddr     string
	endpointPath string
}

func newMCPCommand() *cobra.Command {
	opts := &mcpOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes the
troubleshooter as MCP tools for AI assistants:

  troubleshoot        run an unattended session and return the transcript
  mustgather_summary  summarize a must-gather bundle
  runbooks_list       list runbook titles and headings

Supports two transport modes:
  - stdio: Standard input/output mode (default, for subprocess-based MCP clients)
  - http: streamable HTTP with a /health endpoint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.runbooks, "runbooks", "", "Default runbook file or directory for tool calls that name none")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8082", "HTTP server address (host:port)")
	cmd.Flags().StringVar(&opts.endpointPath, "mcp-endpoint", mcp.DefaultEndpointPath, "HTTP endpoint path for MCP requests")
	return cmd
}

func (o *mcpOptions) run(cmd *cobra.Command) error {
	logger := logging.GetLogger("mcp")

	cfg, err := o.load(cmd, nil)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(mcp.ServerOptions{
		Config:          cfg,
		DefaultRunbooks: o.runbooks,
		Version:         Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting troubleshooter MCP server (transport: %s)", o.transport)
	switch o.transport {
	case "stdio":
		return srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	case "http":
		return srv.ServeHTTP(ctx, o.httpAddr, o.endpointPath)
	default:
		return fmt.Errorf("unsupported transport %q (must be stdio or http)", o.transport)
	}
}
