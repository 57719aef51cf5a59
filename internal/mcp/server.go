package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/export"
	"github.com/ziadkadry99/sitesmith/internal/persist"
	"github.com/ziadkadry99/sitesmith/internal/pipeline"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Generator runs one generation. *pipeline.Pipeline satisfies it.
type Generator interface {
	GenerateWithReporter(ctx context.Context, req document.GenerationRequest, extra progress.Reporter) (*document.Document, *pipeline.Stats, error)
}

// Deps are the collaborators the tools operate on.
type Deps struct {
	Session         *document.Session
	Generator       Generator
	Assembler       *export.Assembler
	Autosaver       *persist.Autosaver
	DefaultLanguage string
	MaxImageCount   int
	Logger          zerolog.Logger
}

// Server wraps an MCP server that exposes the editing session to agents.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	if deps.Assembler == nil {
		deps.Assembler = export.NewAssembler(nil, deps.Logger)
	}
	if deps.Autosaver != nil {
		deps.Session.OnChange(deps.Autosaver.Schedule)
	}
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"sitesmith",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateSiteTool, s.handleGenerateSite)
	s.mcp.AddTool(getDocumentTool, s.handleGetDocument)
	s.mcp.AddTool(updateDocumentTool, s.handleUpdateDocument)
	s.mcp.AddTool(undoTool, s.handleUndo)
	s.mcp.AddTool(redoTool, s.handleRedo)
	s.mcp.AddTool(exportSiteTool, s.handleExportSite)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
