package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/doccontext-mcp/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "doccontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	logger *zap.Logger
}

// NewServer creates an MCP server exposing a's documentation tools. The
// caller keeps ownership of a and closes it after Serve returns.
func NewServer(a *app.App) (*Server, error) {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		app:    a,
		logger: a.Logger.Named("mcp"),
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", zap.String("version", ServerVersion))
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(showContextTool(), s.handleShowContext)
	s.mcp.AddTool(listDocsTool(), s.handleListDocs)
	s.mcp.AddTool(addDocTool(), s.handleAddDoc)
	s.mcp.AddTool(deleteDocTool(), s.handleDeleteDoc)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
