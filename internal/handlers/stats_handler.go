package handlers

import (
	"context"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type StatsHandler struct {
	statsService       *services.StatsService
	leaderboardService *services.LeaderboardService
}

func NewStatsHandler(statsService *services.StatsService, leaderboardService *services.LeaderboardService) *StatsHandler {
	return &StatsHandler{
		statsService:       statsService,
		leaderboardService: leaderboardService,
	}
}

func (h *StatsHandler) RegisterRoutes(r *Routes) {
	r.Admin.Get("/stats", h.AdminStats)
	r.Admin.Get("/leaderboard", h.Leaderboard)
}

func (h *StatsHandler) AdminStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.statsService.AdminStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve dashboard stats")
	}
	return utils.SuccessResponse(c, "", stats)
}

func (h *StatsHandler) Leaderboard(c fiber.Ctx) error {
	return leaderboard(c, h.leaderboardService)
}
