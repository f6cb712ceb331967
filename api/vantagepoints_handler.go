package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/mvp"
)

// InsertVantagePointResponse is returned by POST /v1/vantage-points.
type InsertVantagePointResponse struct {
	ID int64 `json:"id"`
}

// handleInsertVantagePoint promotes an existing point (given by ?point_id=)
// to a vantage point, or, absent that, hashes the request body as an image
// and promotes its value directly.
func (s *Server) handleInsertVantagePoint(c *fiber.Ctx) error {
	ctx := c.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	var sum []byte
	if raw := c.Query("point_id"); raw != "" {
		pointID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid point_id"})
		}
		sum, err = s.index.PointValue(ctx, pointID)
		if errors.Is(err, mvp.ErrPointNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "point not found"})
		}
		if err != nil {
			s.logger.Error("failed to read point value", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read point value"})
		}
	} else {
		img, err := decodeImage(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not decode image: " + err.Error()})
		}
		sum, err = s.hasher.Hash(img)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "could not hash image"})
		}
	}

	id, err := s.index.InsertVantagePoint(ctx, sum)
	if errors.Is(err, mvp.ErrVantagePointExists) {
		return c.JSON(InsertVantagePointResponse{ID: id})
	}
	if err != nil {
		s.logger.Error("failed to insert vantage point", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to insert vantage point"})
	}

	return c.JSON(InsertVantagePointResponse{ID: id})
}
