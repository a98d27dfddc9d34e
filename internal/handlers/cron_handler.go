package handlers

import (
	"context"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

const cronTimeout = 4 * time.Minute

// CronHandler exposes the maintenance tasks to an external scheduler.
type CronHandler struct {
	maintenanceService *services.MaintenanceService
}

func NewCronHandler(maintenanceService *services.MaintenanceService) *CronHandler {
	return &CronHandler{maintenanceService: maintenanceService}
}

func (h *CronHandler) RegisterRoutes(r *Routes) {
	tasks := map[string]fiber.Handler{
		services.TaskOverdueHomework: h.OverdueHomework,
		services.TaskCompleteLessons: h.CompleteLessons,
		services.TaskResetWeeklyXP:   h.ResetWeeklyXP,
		"run-all":                    h.RunAll,
	}
	for task, handler := range tasks {
		r.Cron.Get("/"+task, handler)
		r.Cron.Post("/"+task, handler)
	}
}

func (h *CronHandler) runTask(c fiber.Ctx, task string, run func(context.Context) (int64, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), cronTimeout)
	defer cancel()

	affected, err := run(ctx)
	if err != nil {
		return respondError(c, err, "run "+task)
	}
	return utils.SuccessResponse(c, "Task completed", fiber.Map{
		"task":     task,
		"affected": affected,
	})
}

func (h *CronHandler) OverdueHomework(c fiber.Ctx) error {
	return h.runTask(c, services.TaskOverdueHomework, h.maintenanceService.MarkOverdueHomework)
}

func (h *CronHandler) CompleteLessons(c fiber.Ctx) error {
	return h.runTask(c, services.TaskCompleteLessons, h.maintenanceService.CompleteFinishedLessons)
}

func (h *CronHandler) ResetWeeklyXP(c fiber.Ctx) error {
	return h.runTask(c, services.TaskResetWeeklyXP, h.maintenanceService.ResetWeeklyXP)
}

func (h *CronHandler) RunAll(c fiber.Ctx) error {
	includeWeekly, _ := strconv.ParseBool(c.Query("includeWeekly"))

	ctx, cancel := context.WithTimeout(context.Background(), cronTimeout)
	defer cancel()

	result, err := h.maintenanceService.RunAll(ctx, includeWeekly)
	if err != nil {
		return respondError(c, err, "run maintenance")
	}
	return utils.SuccessResponse(c, "Maintenance completed", result)
}
