package handlers

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type HomeworkHandler struct {
	homeworkService *services.HomeworkService
}

func NewHomeworkHandler(homeworkService *services.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{homeworkService: homeworkService}
}

func (h *HomeworkHandler) RegisterRoutes(r *Routes) {
	homework := r.Admin.Group("/homework")
	homework.Get("/", h.GetAll)
	homework.Get("/stats", h.GetStats)
	homework.Get("/:id", h.GetByID)
	homework.Post("/", h.Create)
	homework.Put("/:id", h.Update)
	homework.Delete("/:id", h.Delete)
	homework.Post("/:id/grade", h.Grade)
}

func (h *HomeworkHandler) GetAll(c fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.HomeworkFilter{
		StudentID: c.Query("studentId"),
		Subject:   c.Query("subject"),
		Status:    c.Query("status"),
		Search:    c.Query("search"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	homework, err := h.homeworkService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve homework")
	}
	return utils.SuccessResponse(c, "", homework)
}

func (h *HomeworkHandler) GetByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.GetByID(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve homework")
	}
	return utils.SuccessResponse(c, "", hw)
}

func (h *HomeworkHandler) Create(c fiber.Ctx) error {
	var req models.CreateHomeworkRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.Create(ctx, &req)
	if err != nil {
		return respondError(c, err, "create homework")
	}
	return utils.CreatedResponse(c, "Homework assigned successfully", hw)
}

func (h *HomeworkHandler) Update(c fiber.Ctx) error {
	var req models.UpdateHomeworkRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.Update(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update homework")
	}
	return utils.SuccessResponse(c, "Homework updated successfully", hw)
}

func (h *HomeworkHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.homeworkService.Delete(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete homework")
	}
	return utils.SuccessResponse(c, "Homework deleted successfully", nil)
}

func (h *HomeworkHandler) Grade(c fiber.Ctx) error {
	var req models.GradeHomeworkRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.Grade(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "grade homework")
	}
	return utils.SuccessResponse(c, "Homework graded successfully", hw)
}

func (h *HomeworkHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.homeworkService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve homework stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
