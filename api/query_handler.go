package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QueryResponseItem is one match in QueryResponse.Results.
type QueryResponseItem struct {
	ID       int64  `json:"id"`
	Path     string `json:"path,omitempty"`
	Distance uint32 `json:"distance"`
}

// QueryResponse is returned by GET /v1/query.
type QueryResponse struct {
	Results []QueryResponseItem `json:"results"`
	Count   int                 `json:"count"`
}

// handleQuery hashes the request body as an image, runs a radius query, and
// joins each match back to the path pkg/items recorded for it, if any.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	ctx := c.Context()

	radius, err := parseUintQuery(c, "radius", 4)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid radius"})
	}
	limit, err := parseUintQuery(c, "limit", 0)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid limit"})
	}

	img, err := decodeImage(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not decode image: " + err.Error()})
	}

	sum, err := s.hasher.Hash(img)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "could not hash image"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.index.Query(ctx, sum, uint32(radius)); err != nil {
		s.logger.Error("query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "query failed"})
	}

	rows, err := s.index.QueryResults(ctx)
	if err != nil {
		s.logger.Error("failed to read query results", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read query results"})
	}
	if limit > 0 && uint64(len(rows)) > limit {
		rows = rows[:limit]
	}

	results := make([]QueryResponseItem, len(rows))
	for i, r := range rows {
		item := QueryResponseItem{ID: r.ID, Distance: r.Distance}
		if path, err := s.items.PathForPoint(ctx, r.ID); err == nil {
			item.Path = path
		}
		results[i] = item
	}

	return c.JSON(QueryResponse{Results: results, Count: len(results)})
}

// parseUintQuery reads name from c's query string, or returns def if absent.
func parseUintQuery(c *fiber.Ctx, name string, def uint64) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 32)
}
