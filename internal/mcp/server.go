// Package mcpserver exposes gridq datasets to AI agents over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// Backend answers the queries behind the MCP tools.
type Backend interface {
	Query(ctx context.Context, transport, dataset string, q model.Query) (model.Result, error)
	Datasets() []model.DatasetInfo
}

// Server is the MCP server for gridq.
type Server struct {
	mcp     *server.MCPServer
	backend Backend
	logger  *slog.Logger
}

// New creates an MCP server with the dataset tools and resources registered.
func New(backend Backend, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{backend: backend, logger: logger}
	s.mcp = server.NewMCPServer(
		"gridq",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
