package api

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/hasher"
	"github.com/s-bear/image-hash/pkg/items"
	"github.com/s-bear/image-hash/pkg/mvp"
)

// Server is the HTTP API server for inserting points, running similarity
// queries, and promoting vantage points on a shared index.
type Server struct {
	config Config
	index  *mvp.Index
	items  *items.Store
	hasher hasher.Hasher
	logger *zap.Logger
	app    *fiber.App

	// mu serializes all index access through the HTTP layer. The index
	// itself only supports one writer at a time; this keeps concurrent
	// requests from racing to find that out the hard way.
	mu sync.Mutex
}

// NewServer creates a new API server. The index, item store, and hasher are
// injected so they can be shared with cmd/imghash serve's MCP server.
func NewServer(config Config, index *mvp.Index, store *items.Store, h hasher.Hasher, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		index:  index,
		items:  store,
		hasher: h,
		logger: logger,
		app:    app,
	}

	app.Post("/v1/points", s.handleInsertPoint)
	app.Get("/v1/query", s.handleQuery)
	app.Get("/v1/stats", s.handleStats)
	app.Post("/v1/vantage-points", s.handleInsertVantagePoint)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
