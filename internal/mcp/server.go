// Package mcp wraps the mcp-go server with this project's construction
// and transport conventions.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server bundles the MCPServer with the logger the transports report to.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates the MCP server. Tools are registered by the caller via
// MCP() before serving starts.
func NewServer(name, version string, logger *zap.Logger) *Server {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)
	return &Server{mcp: s, logger: logger}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving the stdio transport until the client closes the
// stream. Logging goes to stderr, so stdout stays a clean protocol channel.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving on stdio")
	return server.ServeStdio(s.mcp)
}

// NewStreamableHTTPServer creates the HTTP transport wrapping this server.
// Stateless mode: every request carries its own session, so the server
// survives client reconnects without session bookkeeping.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
