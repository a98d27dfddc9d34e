package handlers

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

// PortalHandler serves the student-facing pages. Every query is scoped to the
// authenticated student.
type PortalHandler struct {
	statsService       *services.StatsService
	lessonService      *services.LessonService
	homeworkService    *services.HomeworkService
	leaderboardService *services.LeaderboardService
}

func NewPortalHandler(
	statsService *services.StatsService,
	lessonService *services.LessonService,
	homeworkService *services.HomeworkService,
	leaderboardService *services.LeaderboardService,
) *PortalHandler {
	return &PortalHandler{
		statsService:       statsService,
		lessonService:      lessonService,
		homeworkService:    homeworkService,
		leaderboardService: leaderboardService,
	}
}

func (h *PortalHandler) RegisterRoutes(r *Routes) {
	r.Student.Get("/dashboard", h.Dashboard)
	r.Student.Get("/lessons", h.Lessons)
	r.Student.Get("/homework", h.Homework)
	r.Student.Get("/homework/:id", h.HomeworkByID)
	r.Student.Post("/homework/:id/questions/:questionId/complete", h.CompleteQuestion)
	r.Student.Post("/homework/:id/submit", h.Submit)
	r.Student.Get("/leaderboard", h.Leaderboard)
}

func (h *PortalHandler) Dashboard(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	dashboard, err := h.statsService.StudentDashboard(ctx, studentID(c))
	if err != nil {
		return respondError(c, err, "load dashboard")
	}
	return utils.SuccessResponse(c, "", dashboard)
}

func (h *PortalHandler) Lessons(c fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.LessonFilter{
		StudentID: studentID(c),
		Subject:   c.Query("subject"),
		Status:    c.Query("status"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lessons, err := h.lessonService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve lessons")
	}
	return utils.SuccessResponse(c, "", lessons)
}

func (h *PortalHandler) Homework(c fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.HomeworkFilter{
		StudentID: studentID(c),
		Subject:   c.Query("subject"),
		Status:    c.Query("status"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	homework, err := h.homeworkService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve homework")
	}
	return utils.SuccessResponse(c, "", homework)
}

func (h *PortalHandler) HomeworkByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.GetForStudent(ctx, studentID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve homework")
	}
	return utils.SuccessResponse(c, "", hw)
}

func (h *PortalHandler) CompleteQuestion(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := h.homeworkService.CompleteQuestion(ctx, studentID(c), c.Params("id"), c.Params("questionId"))
	if err != nil {
		return respondError(c, err, "complete question")
	}
	return utils.SuccessResponse(c, "Question completed", result)
}

func (h *PortalHandler) Submit(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hw, err := h.homeworkService.Submit(ctx, studentID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "submit homework")
	}
	return utils.SuccessResponse(c, "Homework submitted successfully", hw)
}

func (h *PortalHandler) Leaderboard(c fiber.Ctx) error {
	return leaderboard(c, h.leaderboardService)
}

func leaderboard(c fiber.Ctx, svc *services.LeaderboardService) error {
	period := services.ParseLeaderboardPeriod(c.Query("period"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	entries, err := svc.Top(ctx, period, limit)
	if err != nil {
		return respondError(c, err, "retrieve leaderboard")
	}
	return utils.SuccessResponse(c, "", entries)
}
