package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minevote/api/shared"
)

type StatsHandler struct {
	statsSvc StatsServiceInterface
}

func NewStatsHandler(statsSvc StatsServiceInterface) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// @Summary Site stats
// @Description Public site-wide counters
// @Tags stats
// @Produce json
// @Success 200 {object} shared.Response{data=dto.SiteStats}
// @Router /api/v1/stats [get]
func (h *StatsHandler) SiteStats(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=60")

	resp, err := h.statsSvc.GetSiteStats(c.UserContext())
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
