package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/inspection"
)

// ServerName is reported to clients during initialization.
const ServerName = "inspect-mcp"

// Options configures a Server.
type Options struct {
	Version string
	// MermaidCharts adds Mermaid chart text to board results.
	MermaidCharts bool
}

// Server exposes the inspection engine as MCP tools.
type Server struct {
	engine *inspection.Engine
	sdk    *sdkmcp.Server
	charts bool
}

// NewServer creates a new MCP server and registers all tools.
func NewServer(engine *inspection.Engine, opts Options) (*Server, error) {
	s := &Server{
		engine: engine,
		charts: opts.MermaidCharts,
		sdk: sdkmcp.NewServer(&sdkmcp.Implementation{
			Name:    ServerName,
			Version: opts.Version,
		}, nil),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serve runs the server over stdio until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("server", ServerName).Msg("Serving MCP over stdio")
	return s.sdk.Run(ctx, &sdkmcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport, e.g. an in-memory pipe.
func (s *Server) Connect(ctx context.Context, t sdkmcp.Transport) (*sdkmcp.ServerSession, error) {
	return s.sdk.Connect(ctx, t, nil)
}
