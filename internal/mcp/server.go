// Package mcp exposes diagram generation to AI agents over the Model
// Context Protocol.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/render"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the diagram tools.
type Server struct {
	gen    generate.Generator
	engine render.Engine
	logger *slog.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. A nil engine leaves render_diagram
// unregistered.
func NewServer(gen generate.Generator, engine render.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		gen:    gen,
		engine: engine,
		logger: logger,
	}

	s.mcp = server.NewMCPServer(
		"diagramify",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateDiagramTool, s.handleGenerateDiagram)
	s.mcp.AddTool(splitSectionsTool, s.handleSplitSections)
	s.mcp.AddTool(outlineDiagramTool, s.handleOutlineDiagram)
	if s.engine != nil {
		s.mcp.AddTool(renderDiagramTool, s.handleRenderDiagram)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
