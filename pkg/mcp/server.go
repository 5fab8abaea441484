package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/pkg/schema"
)

// WorkflowCatalog lists and resolves the loaded workflows. Satisfied by
// *registry.Registry.
type WorkflowCatalog interface {
	IDs() []string
	Workflow(id string) (*schema.WorkflowDescriptor, error)
}

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Runner    engine.Runner
	Workflows WorkflowCatalog
	Logger    *slog.Logger
	Version   string
}

// Server wraps an MCP server with the oscaptool tool handlers.
type Server struct {
	runner    engine.Runner
	workflows WorkflowCatalog
	notifier  *ProgressNotifier
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a Server with the run, workflows and diagram tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		runner:    deps.Runner,
		workflows: deps.Workflows,
		notifier:  NewProgressNotifier(logger),
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"oscaptool",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithInstructions("oscaptool runs configured OpenSCAP workflows. Use oscaptool.workflows to list workflow ids, oscaptool.diagram to inspect a workflow's action chain and oscaptool.run to execute one with an input map."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: workflowsTool(), Handler: s.handleWorkflows},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("oscaptool.run",
		mcp.WithDescription("Run a workflow and return its final data bag and step trace"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to run")),
		mcp.WithObject("inputs", mcp.Description("Initial data bag entries (e.g. scan_id, content, profile)")),
	)
}

func workflowsTool() mcp.Tool {
	return mcp.NewTool("oscaptool.workflows",
		mcp.WithDescription("List the ids of the loaded workflows"),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("oscaptool.diagram",
		mcp.WithDescription("Generate a diagram of a workflow's action chain. Returns ASCII art, Mermaid flowchart syntax, or a base64-encoded PNG image"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to diagram")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
	)
}
