package handlers

import (
	"context"
	"fmt"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

type PastPaperHandler struct {
	pastPaperService *services.PastPaperService
	maxUploadSize    int64
}

func NewPastPaperHandler(pastPaperService *services.PastPaperService, maxUploadSize int64) *PastPaperHandler {
	return &PastPaperHandler{
		pastPaperService: pastPaperService,
		maxUploadSize:    maxUploadSize,
	}
}

func (h *PastPaperHandler) RegisterRoutes(r *Routes) {
	papers := r.Admin.Group("/past-papers")
	papers.Get("/", h.GetAll)
	papers.Get("/stats", h.GetStats)
	papers.Get("/:id", h.GetByID)
	papers.Post("/", h.Create)
	papers.Put("/:id", h.Update)
	papers.Delete("/:id", h.Delete)
	papers.Post("/:id/files", h.UploadFile)

	student := r.Student.Group("/past-papers")
	student.Get("/", h.GetAll)
	student.Get("/:id", h.GetByID)
}

func (h *PastPaperHandler) GetAll(c fiber.Ctx) error {
	page, limit := pagination(c)
	year, _ := strconv.Atoi(c.Query("year"))
	filter := models.PastPaperFilter{
		Subject: c.Query("subject"),
		Year:    year,
		Session: c.Query("session"),
		Search:  c.Query("search"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	papers, err := h.pastPaperService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve past papers")
	}
	return utils.SuccessResponse(c, "", papers)
}

func (h *PastPaperHandler) GetByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	paper, err := h.pastPaperService.GetByID(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve past paper")
	}
	return utils.SuccessResponse(c, "", paper)
}

func (h *PastPaperHandler) Create(c fiber.Ctx) error {
	var req models.CreatePastPaperRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	paper, err := h.pastPaperService.Create(ctx, &req)
	if err != nil {
		return respondError(c, err, "create past paper")
	}
	return utils.CreatedResponse(c, "Past paper created successfully", paper)
}

func (h *PastPaperHandler) Update(c fiber.Ctx) error {
	var req models.UpdatePastPaperRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	paper, err := h.pastPaperService.Update(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update past paper")
	}
	return utils.SuccessResponse(c, "Past paper updated successfully", paper)
}

func (h *PastPaperHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.pastPaperService.Delete(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete past paper")
	}
	return utils.SuccessResponse(c, "Past paper deleted successfully", nil)
}

// UploadFile stores the multipart "file" field as the question paper or, with
// ?kind=markscheme, the mark scheme.
func (h *PastPaperHandler) UploadFile(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequestResponse(c, "File is required")
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		return utils.BadRequestResponse(c, fmt.Sprintf("File exceeds the %d MB limit", h.maxUploadSize>>20))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, err, "read uploaded file")
	}
	defer src.Close()

	kind := models.PaperFileKind(c.Query("kind", string(models.PaperFileQuestions)))
	contentType := file.Header.Get(fiber.HeaderContentType)

	ctx, cancel := context.WithTimeout(context.Background(), 2*requestTimeout)
	defer cancel()

	paper, err := h.pastPaperService.AttachFile(ctx, c.Params("id"), kind, file.Filename, src, file.Size, contentType)
	if err != nil {
		return respondError(c, err, "upload past paper file")
	}
	return utils.SuccessResponse(c, "File uploaded successfully", paper)
}

func (h *PastPaperHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.pastPaperService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve past paper stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
