package api

import (
	"bytes"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InsertPointResponse is returned by POST /v1/points.
type InsertPointResponse struct {
	ID        int64 `json:"id"`
	Partition int64 `json:"partition"`
}

// handleInsertPoint hashes the request body as an image, inserts it as a
// point, and records its path under a synthetic "upload:<hex hash>" key so
// later queries can resolve the id back to something displayable.
func (s *Server) handleInsertPoint(c *fiber.Ctx) error {
	ctx := c.Context()

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

	id, err := s.index.InsertPoint(ctx, sum)
	if err != nil {
		s.logger.Error("failed to insert point", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to insert point"})
	}

	path := "upload:" + hex.EncodeToString(sum)
	if _, err := s.items.Insert(ctx, path, id); err != nil {
		s.logger.Warn("failed to record item for inserted point", zap.Int64("id", id), zap.Error(err))
	}

	partition, err := s.index.PointPartition(ctx, id)
	if err != nil {
		s.logger.Warn("failed to read partition for inserted point", zap.Int64("id", id), zap.Error(err))
	}

	return c.JSON(InsertPointResponse{ID: id, Partition: partition})
}

// decodeImage wraps image.Decode to avoid every handler importing "bytes"
// and "image" directly.
func decodeImage(body []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(body))
	return img, err
}
