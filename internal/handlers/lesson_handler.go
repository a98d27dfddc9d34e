package handlers

import (
	"context"
	"proacademics-service/internal/importer"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

type LessonHandler struct {
	lessonService *services.LessonService
}

func NewLessonHandler(lessonService *services.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

func (h *LessonHandler) RegisterRoutes(r *Routes) {
	lessons := r.Admin.Group("/lessons")
	lessons.Get("/", h.GetAll)
	lessons.Get("/stats", h.GetStats)
	lessons.Get("/:id", h.GetByID)
	lessons.Post("/", h.Create)
	lessons.Put("/:id", h.Update)
	lessons.Delete("/:id", h.Delete)
}

// dateQuery parses an optional date query parameter; a malformed value yields an error.
// An unencoded "+" in an RFC3339 offset arrives as a space and is read back as "+".
func dateQuery(c fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := importer.ParseDate(raw)
	if err != nil {
		i := strings.LastIndex(raw, " ")
		if i < 0 {
			return nil, err
		}
		if t, err = time.Parse(time.RFC3339, raw[:i]+"+"+raw[i+1:]); err != nil {
			return nil, err
		}
		t = t.UTC()
	}
	return &t, nil
}

func (h *LessonHandler) GetAll(c fiber.Ctx) error {
	page, limit := pagination(c)
	from, err := dateQuery(c, "from")
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid from date")
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid to date")
	}
	filter := models.LessonFilter{
		Subject:   c.Query("subject"),
		ProgramID: c.Query("programId"),
		Status:    c.Query("status"),
		Teacher:   c.Query("teacher"),
		StudentID: c.Query("studentId"),
		Search:    c.Query("search"),
		From:      from,
		To:        to,
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lessons, err := h.lessonService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve lessons")
	}
	return utils.SuccessResponse(c, "", lessons)
}

func (h *LessonHandler) GetByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lesson, err := h.lessonService.GetByID(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve lesson")
	}
	return utils.SuccessResponse(c, "", lesson)
}

func (h *LessonHandler) Create(c fiber.Ctx) error {
	var req models.CreateLessonRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lesson, err := h.lessonService.Create(ctx, &req)
	if err != nil {
		return respondError(c, err, "create lesson")
	}
	return utils.CreatedResponse(c, "Lesson created successfully", lesson)
}

func (h *LessonHandler) Update(c fiber.Ctx) error {
	var req models.UpdateLessonRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lesson, err := h.lessonService.Update(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update lesson")
	}
	return utils.SuccessResponse(c, "Lesson updated successfully", lesson)
}

func (h *LessonHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.lessonService.Delete(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete lesson")
	}
	return utils.SuccessResponse(c, "Lesson deleted successfully", nil)
}

func (h *LessonHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.lessonService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve lesson stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
