package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// VantagePointStatsResponse mirrors pkg/mvp.VantagePointStats for JSON.
type VantagePointStatsResponse struct {
	ID     int64 `json:"id"`
	Bound1 int64 `json:"bound1"`
	Bound2 int64 `json:"bound2"`
	Bound3 int64 `json:"bound3"`
	Count0 int64 `json:"count0"`
	Count1 int64 `json:"count1"`
	Count2 int64 `json:"count2"`
	Count3 int64 `json:"count3"`
}

// StatsResponse is returned by GET /v1/stats.
type StatsResponse struct {
	Points        int64                       `json:"points"`
	VantagePoints int64                       `json:"vantage_points"`
	Shells        []VantagePointStatsResponse `json:"shells"`
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx := c.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	points, err := s.index.CountPoints(ctx)
	if err != nil {
		s.logger.Error("failed to count points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count points"})
	}
	vps, err := s.index.CountVantagePoints(ctx)
	if err != nil {
		s.logger.Error("failed to count vantage points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count vantage points"})
	}
	shells, err := s.index.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to read vantage point stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read vantage point stats"})
	}

	resp := StatsResponse{
		Points:        points,
		VantagePoints: vps,
		Shells:        make([]VantagePointStatsResponse, len(shells)),
	}
	for i, v := range shells {
		resp.Shells[i] = VantagePointStatsResponse{
			ID: v.ID, Bound1: v.Bound1, Bound2: v.Bound2, Bound3: v.Bound3,
			Count0: v.Count0, Count1: v.Count1, Count2: v.Count2, Count3: v.Count3,
		}
	}

	return c.JSON(resp)
}
