// Package mcp exposes report normalization as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/service"
)

// CatalogResourceURI addresses the reference catalog resource.
const CatalogResourceURI = "labnorm://catalog"

// Server wraps the MCP SDK server with the normalizer tools, resources and prompts.
type Server struct {
	service   *service.ReportService
	logger    *logrus.Logger
	mcpServer *mcp.Server
}

// NewServer creates an MCP server backed by svc.
func NewServer(cfg domain.MCPConfig, svc *service.ReportService, logger *logrus.Logger) *Server {
	s := &Server{
		service: svc,
		logger:  logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		}, nil),
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	logger.WithFields(logrus.Fields{
		"server_name":    cfg.ServerName,
		"server_version": cfg.ServerVersion,
	}).Info("MCP server initialized")
	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves over an arbitrary transport.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("Starting MCP server")
	if err := s.mcpServer.Run(ctx, t); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}
