// Package mcp exposes the quality engine's intents as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/export"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

// Engine is the snapshot side of the quality engine the tools read from.
type Engine interface {
	domain.SnapshotSource
	domain.Reloader
}

// Server represents the provider quality MCP server
type Server struct {
	config    domain.MCPConfig
	mcpServer *mcp.Server
	engine    Engine
	queries   *query.Router
	exports   export.Store
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithExportStore enables the save_export tool.
func WithExportStore(store export.Store) ServerOption {
	return func(s *Server) {
		s.exports = store
	}
}

// NewServer creates a new MCP server instance and registers its tools
func NewServer(cfg domain.MCPConfig, logger *logrus.Logger, engine Engine, queries *query.Router, opts ...ServerOption) (*Server, error) {
	name := cfg.ServerName
	if name == "" {
		name = "provider-quality-engine"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	server := &Server{
		config:  cfg,
		engine:  engine,
		queries: queries,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	// Create MCP server
	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	if err := server.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return server, nil
}

// Start runs the MCP server until the client disconnects or ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	transport := strings.ToLower(s.config.TransportType)
	if transport != "" && transport != "stdio" {
		return fmt.Errorf("unsupported MCP transport: %s", s.config.TransportType)
	}

	s.logger.WithField("transport_type", "stdio").Info("Starting provider quality MCP server")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.queries.Intents())+3)
	names = append(names, s.queries.Intents()...)
	names = append(names, ToolQuery, ToolReload)
	if s.exports != nil {
		names = append(names, ToolSaveExport)
	}
	return names
}

// registerTools registers one tool per router intent plus the free-form
// query, reload and export tools.
func (s *Server) registerTools() error {
	for _, intent := range s.queries.Intents() {
		description, ok := intentDescriptions[intent]
		if !ok {
			return fmt.Errorf("no description for intent %s", intent)
		}
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        intent,
			Description: description,
		}, s.intentHandler(intent))
		s.logger.WithField("tool_name", intent).Debug("Registered MCP tool")
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolQuery,
		Description: "Answer a named intent. Unrecognized intents are answered with the overall quality score.",
	}, s.handleQuery)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolReload,
		Description: "Reload the roster and registries from the configured files and publish a new snapshot.",
	}, s.handleReload)

	if s.exports != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolSaveExport,
			Description: "Persist the credentialing update list (or another record report) as an export run.",
		}, s.handleSaveExport)
	}

	s.logger.WithField("tool_count", len(s.ToolNames())).Info("Successfully registered all tools")
	return nil
}
