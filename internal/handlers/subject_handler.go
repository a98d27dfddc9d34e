package handlers

import (
	"context"
	"log"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type SubjectHandler struct {
	subjectService *services.SubjectService
}

func NewSubjectHandler(subjectService *services.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectService: subjectService}
}

func (h *SubjectHandler) RegisterRoutes(r *Routes) {
	subjects := r.Admin.Group("/subjects")
	subjects.Get("/", h.ListSubjects)
	subjects.Get("/stats", h.GetStats)
	subjects.Get("/:id", h.GetSubject)
	subjects.Get("/:id/programs", h.ListProgramsBySubject)
	subjects.Post("/", h.CreateSubject)
	subjects.Put("/:id", h.UpdateSubject)
	subjects.Delete("/:id", h.DeleteSubject)

	programs := r.Admin.Group("/programs")
	programs.Get("/", h.ListPrograms)
	programs.Post("/remove-duplicates", h.RemoveDuplicatePrograms)
	programs.Get("/:id", h.GetProgram)
	programs.Post("/", h.CreateProgram)
	programs.Put("/:id", h.UpdateProgram)
	programs.Delete("/:id", h.DeleteProgram)
}

func (h *SubjectHandler) ListSubjects(c fiber.Ctx) error {
	page, limit := pagination(c)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	subjects, err := h.subjectService.ListSubjects(ctx, c.Query("search"), page, limit)
	if err != nil {
		return respondError(c, err, "retrieve subjects")
	}
	return utils.SuccessResponse(c, "", subjects)
}

func (h *SubjectHandler) GetSubject(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	subject, err := h.subjectService.GetSubject(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve subject")
	}
	return utils.SuccessResponse(c, "", subject)
}

func (h *SubjectHandler) CreateSubject(c fiber.Ctx) error {
	var req models.CreateSubjectRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	subject, err := h.subjectService.CreateSubject(ctx, &req)
	if err != nil {
		return respondError(c, err, "create subject")
	}
	return utils.CreatedResponse(c, "Subject created successfully", subject)
}

func (h *SubjectHandler) UpdateSubject(c fiber.Ctx) error {
	var req models.UpdateSubjectRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	subject, err := h.subjectService.UpdateSubject(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update subject")
	}
	return utils.SuccessResponse(c, "Subject updated successfully", subject)
}

// DeleteSubject removes the subject together with its programs.
func (h *SubjectHandler) DeleteSubject(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	removed, err := h.subjectService.DeleteSubject(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "delete subject")
	}
	log.Printf("Deleted subject %s and %d programs", c.Params("id"), removed)
	return utils.SuccessResponse(c, "Subject deleted successfully", fiber.Map{
		"deletedPrograms": removed,
	})
}

func (h *SubjectHandler) ListProgramsBySubject(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	programs, err := h.subjectService.ListProgramsBySubject(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve programs")
	}
	return utils.SuccessResponse(c, "", programs)
}

func (h *SubjectHandler) ListPrograms(c fiber.Ctx) error {
	page, limit := pagination(c)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	programs, err := h.subjectService.ListPrograms(ctx, c.Query("subjectId"), c.Query("search"), page, limit)
	if err != nil {
		return respondError(c, err, "retrieve programs")
	}
	return utils.SuccessResponse(c, "", programs)
}

func (h *SubjectHandler) GetProgram(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	program, err := h.subjectService.GetProgram(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve program")
	}
	return utils.SuccessResponse(c, "", program)
}

func (h *SubjectHandler) CreateProgram(c fiber.Ctx) error {
	var req models.CreateProgramRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	program, err := h.subjectService.CreateProgram(ctx, &req)
	if err != nil {
		return respondError(c, err, "create program")
	}
	return utils.CreatedResponse(c, "Program created successfully", program)
}

func (h *SubjectHandler) UpdateProgram(c fiber.Ctx) error {
	var req models.UpdateProgramRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	program, err := h.subjectService.UpdateProgram(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update program")
	}
	return utils.SuccessResponse(c, "Program updated successfully", program)
}

func (h *SubjectHandler) DeleteProgram(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.subjectService.DeleteProgram(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete program")
	}
	return utils.SuccessResponse(c, "Program deleted successfully", nil)
}

func (h *SubjectHandler) RemoveDuplicatePrograms(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := h.subjectService.RemoveDuplicatePrograms(ctx)
	if err != nil {
		return respondError(c, err, "remove duplicate programs")
	}
	return utils.SuccessResponse(c, "Duplicate programs removed", result)
}

func (h *SubjectHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.subjectService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve subject stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
