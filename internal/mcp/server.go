// Package mcp exposes access evaluation and SVT weighting as MCP tools.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/svt"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string
	Source     feature.Source
	Version    string
	Logger     *zap.Logger
}

// Server wraps the MCP SDK server around an SVT processor. No tool writes
// to the ledger, the audit log or the stream.
type Server struct {
	mcpServer *mcpsdk.Server
	proc      *svt.Processor
	logger    *zap.Logger
}

// New loads the configuration and registers the tools.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	conf, hash, err := config.LoadWithHash(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	proc, err := svt.Build(conf, hash, cfg.Source, svt.Sinks{}, cfg.Logger, nil)
	if err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		proc:   proc,
		logger: cfg.Logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "accord",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server running on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.mcpServer
}

// registerTools adds all accord tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "evaluate_access",
		Description: "Check whether a DID may perform an intent. Returns the decision, reason and matching policy.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "weigh_svt",
		Description: "Compute the consensus weight of a submission without recording it (dry-run).",
	}, s.handleWeigh)
}
