// Package mcp exposes the running shell to MCP clients over stdio. Every
// tool is a thin wrapper around the IPC client, so the MCP process needs no
// X11 connection of its own.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/readershell/internal/ipc"
)

const (
	ServerName    = "readershell"
	ServerVersion = "0.1.0"
)

// Server is the MCP server for shell introspection and window control.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates a new MCP server talking to the shell's IPC socket.
func NewServer() *Server {
	s := &Server{
		client: ipc.NewClient(),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List all active displays with their bounds, scale factors and which one currently holds the reader window.",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "current_display",
		Description: "Return the display the reader window currently occupies. located=false means the window sits outside every display.",
	}, s.handleCurrentDisplay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_to_display",
		Description: "Move the reader window to a display by index and center it there. Moving to the current display is a no-op.",
	}, s.handleMoveToDisplay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_settings",
		Description: "Read the shell's persisted settings document together with its version counter.",
	}, s.handleReadSettings)
}
