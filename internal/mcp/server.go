// Package mcp exposes the running daemon to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/focushint/internal/ipc"
)

const (
	ServerName    = "focushint"
	ServerVersion = "0.1.0"
)

// Daemon is the IPC surface the tools call. *ipc.Client implements it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	Indicate(window uint32) (bool, error)
	Reset() error
	SetStrategy(name string) error
	SwitchSlot(slot int) error
}

// Server is the MCP server for focushint.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a new MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
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
		Name:        "get_status",
		Description: "Report the focushint daemon state: whether hints are enabled, the active strategy and phase, the hinted window and any pending focus carried across a workspace switch.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "indicate_window",
		Description: "Play the focus hint on a window. Defaults to the focused window. Returns indicated=false when the window cannot be hinted (fullscreen, maximized, minimized or the launcher overview is open).",
	}, s.handleIndicate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reset_hint",
		Description: "Cancel the running focus hint and remove its overlays.",
	}, s.handleReset)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_strategies",
		Description: "List the available hint strategies and the active one.",
	}, s.handleListStrategies)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_strategy",
		Description: "Switch the hint strategy until the next config reload. The running hint is cancelled.",
	}, s.handleSetStrategy)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_slot",
		Description: "Activate the favorite application in a slot (1-9), launching it when it has no windows, and hint the window that gets focus.",
	}, s.handleSwitchSlot)
}
