package handlers

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type StudentHandler struct {
	userService *services.UserService
}

func NewStudentHandler(userService *services.UserService) *StudentHandler {
	return &StudentHandler{userService: userService}
}

type awardXPRequest struct {
	Points int `json:"points"`
}

func (h *StudentHandler) RegisterRoutes(r *Routes) {
	students := r.Admin.Group("/students")
	students.Get("/", h.GetAll)
	students.Get("/stats", h.GetStats)
	students.Get("/:id", h.GetByID)
	students.Post("/", h.Create)
	students.Put("/:id", h.Update)
	students.Delete("/:id", h.Delete)
	students.Post("/:id/xp", h.AwardXP)
}

func (h *StudentHandler) GetAll(c fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.StudentFilter{
		Grade:     c.Query("grade"),
		ProgramID: c.Query("programId"),
		IsActive:  parseBoolQuery(c, "isActive"),
		Search:    c.Query("search"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	students, err := h.userService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve students")
	}
	return utils.SuccessResponse(c, "", students)
}

func (h *StudentHandler) GetByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	student, err := h.userService.GetStudent(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve student")
	}
	return utils.SuccessResponse(c, "", student)
}

func (h *StudentHandler) Create(c fiber.Ctx) error {
	var req models.CreateStudentRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	student, err := h.userService.CreateStudent(ctx, &req)
	if err != nil {
		return respondError(c, err, "create student")
	}
	return utils.CreatedResponse(c, "Student created successfully", student)
}

func (h *StudentHandler) Update(c fiber.Ctx) error {
	var req models.UpdateStudentRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	student, err := h.userService.UpdateStudent(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update student")
	}
	return utils.SuccessResponse(c, "Student updated successfully", student)
}

func (h *StudentHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.userService.DeleteStudent(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete student")
	}
	return utils.SuccessResponse(c, "Student deleted successfully", nil)
}

func (h *StudentHandler) AwardXP(c fiber.Ctx) error {
	var req awardXPRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	student, err := h.userService.AwardXP(ctx, c.Params("id"), req.Points)
	if err != nil {
		return respondError(c, err, "award xp")
	}
	return utils.SuccessResponse(c, "XP awarded", student)
}

func (h *StudentHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.userService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve student stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
