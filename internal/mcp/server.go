package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/luigirizzo/lrtile/internal/ipc"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

const (
	ServerName    = "lrtile"
	ServerVersion = "0.1.0"
)

// DaemonClient is the subset of the IPC client the tools use.
type DaemonClient interface {
	Snap(cmd tiling.Command) (*ipc.SnapData, error)
	Undo() error
	GetDisplays() (*ipc.DisplaysData, error)
	RefreshDisplays() (*ipc.DisplaysData, error)
	GetStatus() (*ipc.StatusData, error)
	SetEnabled(enabled *bool, persist bool) (bool, error)
}

var _ DaemonClient = (*ipc.Client)(nil)

// Server is the MCP server exposing window snapping.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
	engine    *tiling.Engine
	defaults  tiling.GridConfig
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards to the daemon through
// client. defaults fill preview_snap parameters the caller omits.
func NewServer(client DaemonClient, defaults tiling.GridConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client:   client,
		engine:   tiling.NewEngine(logger),
		defaults: defaults,
		logger:   logger,
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
		Name:        "snap_window",
		Description: "Move or resize the focused window on the display grid. Commands: left, right, up, down move one cell and shrink against an edge; narrow, wide, short, tall resize by one cell; full fills the display. Windows never get smaller than step cells. Returns the grid rectangles before and after and the new pixel geometry. A disabled daemon or a command at an edge returns changed=false.",
	}, s.handleSnapWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "undo_snap",
		Description: "Restore the focused window to the geometry it had before its most recent snap.",
	}, s.handleUndoSnap)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List displays known to the daemon with their full bounds and usable work area (bounds minus panels and docks).",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether snapping is enabled, the grid configuration and the outcome of the last command.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_enabled",
		Description: "Turn snapping on or off. Omit enabled to toggle. With persist=true the state is saved to the config file.",
	}, s.handleSetEnabled)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "preview_snap",
		Description: "Compute where a grid command would place a window without touching any window. Does not need the daemon. Grid parameters default to the configured values.",
	}, s.handlePreviewSnap)
}
