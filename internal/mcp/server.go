// Package mcp exposes the troubleshooter as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/troubleshooter/internal/config"
	"github.com/moolen/troubleshooter/internal/logging"
)

// Tool is one MCP tool implementation.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// Server wraps the mcp-go server with the troubleshooter tools.
type Server struct {
	mcpServer *server.MCPServer
	tools     map[string]Tool
	logger    *logging.Logger
}

// ServerOptions configures the server.
type ServerOptions struct {
	// Config is the base configuration of troubleshoot sessions.
	Config *config.Config
	// DefaultRunbooks is used when a call names no runbooks.
	DefaultRunbooks string
	Version         string
}

// NewServer creates the server and registers its tools.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"Troubleshooter MCP Server",
			opts.Version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		tools:  make(map[string]Tool),
		logger: logging.GetLogger("mcp"),
	}

	s.registerTool("troubleshoot",
		"Run the Planner, Analyst and Executor agents against must-gather bundles until the issue is diagnosed. Returns the final diagnosis and the transcript.",
		&TroubleshootTool{Config: opts.Config, DefaultRunbooks: opts.DefaultRunbooks, Version: opts.Version},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"issue": map[string]interface{}{
					"type":        "string",
					"description": "The issue to troubleshoot",
				},
				"hub_mg": map[string]interface{}{
					"type":        "string",
					"description": "Path of the hub cluster must-gather",
				},
				"cluster_mg": map[string]interface{}{
					"type":        "string",
					"description": "Optional: path of the managed cluster must-gather (default: hub_mg)",
				},
				"runbooks": map[string]interface{}{
					"type":        "string",
					"description": "Optional: runbook file or directory (default: the configured runbooks)",
				},
			},
			"required": []string{"issue", "hub_mg"},
		},
	)

	s.registerTool("mustgather_summary",
		"Summarize a must-gather bundle: version, capture window, resource counts and unhealthy ClusterOperators",
		&SummaryTool{},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the must-gather directory",
				},
			},
			"required": []string{"path"},
		},
	)

	s.registerTool("runbooks_list",
		"List the titles and section headings of the runbooks in a file or directory",
		&RunbooksTool{DefaultPath: opts.DefaultRunbooks},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Optional: runbook file or directory (default: the configured runbooks)",
				},
			},
		},
	)

	return s, nil
}

func (s *Server) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal schema for tool %s: %v", name, err))
	}
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, description, schemaJSON), s.toolHandler(name, tool))
}

func (s *Server) toolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		s.logger.Debug("Calling tool %s", name)
		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Warn("Tool %s failed: %v", name, err)
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tools returns the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}
