package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/adapters/driving/mcp"
	"github.com/custodia-labs/mnemo/internal/core/services"
)

// Port range searched by --http auto.
const (
	mcpAutoHost      = "127.0.0.1"
	mcpAutoPortStart = 8765
	mcpAutoPortEnd   = 8865
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve streamable HTTP instead. "auto" picks a free port on
localhost.

Tools: search, save_content, process_content, add_turn, get_history, format_history
Resources: mnemo://conversations, mnemo://conversations/{id}

Examples:
  # Stdio mode (default, for Claude Desktop)
  mnemo mcp

  # HTTP mode (for MCP Inspector, remote access)
  mnemo mcp --http localhost:8080
  mnemo mcp --http auto

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "mnemo": {
        "command": "/path/to/mnemo",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", `HTTP listen address, or "auto" (empty = use stdio)`)
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Content: contentService,
		Memory:  memoryService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr == "" {
		return server.Run(cmd.Context())
	}

	addr, err := resolveHTTPAddr(mcpHTTPAddr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}

func resolveHTTPAddr(addr string) (string, error) {
	if addr != "auto" {
		return addr, nil
	}
	port, err := services.FindAvailablePort(mcpAutoHost, mcpAutoPortStart, mcpAutoPortEnd)
	if err != nil {
		return "", fmt.Errorf("finding a port for the MCP server: %w", err)
	}
	return net.JoinHostPort(mcpAutoHost, strconv.Itoa(port)), nil
}
