// Package mcp provides an MCP (Model Context Protocol) server exposing the
// similarity index's find_similar tool.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/hasher"
	"github.com/s-bear/image-hash/pkg/items"
	"github.com/s-bear/image-hash/pkg/mvp"
)

// serverVersion is reported to MCP clients during initialization.
const serverVersion = "0.1.0"

// Config holds the dependencies the find_similar tool needs.
type Config struct {
	// Index is the similarity index to query.
	Index *mvp.Index

	// Items resolves point ids to the paths they were ingested from.
	Items *items.Store

	// Hasher computes the query image's perceptual hash.
	Hasher hasher.Hasher

	// Noop, if set, returns an empty MCP server with no tools registered.
	Noop bool

	// Logger is the configured zap logger.
	Logger *zap.Logger
}

// Server wraps the go-sdk MCP server with this domain's tools.
type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the find_similar tool.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "image-hash",
			Version: serverVersion,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Index == nil {
		return nil, errors.New("index is required")
	}
	if c.Items == nil {
		return nil, errors.New("item store is required")
	}
	if c.Hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        findSimilarToolName,
		Description: findSimilarDescription,
	}, s.handleFindSimilar)

	s.mcpServer = mcpServer

	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
