package handlers

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type TopicVaultHandler struct {
	topicVaultService *services.TopicVaultService
}

func NewTopicVaultHandler(topicVaultService *services.TopicVaultService) *TopicVaultHandler {
	return &TopicVaultHandler{topicVaultService: topicVaultService}
}

func (h *TopicVaultHandler) RegisterRoutes(r *Routes) {
	vault := r.Admin.Group("/topic-vault")
	vault.Get("/", h.GetAll)
	vault.Get("/stats", h.GetStats)
	vault.Get("/grouped", h.GetGrouped)
	vault.Get("/:id", h.GetByID)
	vault.Post("/", h.Create)
	vault.Put("/:id", h.Update)
	vault.Delete("/:id", h.Delete)

	student := r.Student.Group("/topic-vault")
	student.Get("/", h.GetAll)
	student.Get("/grouped", h.GetGrouped)
	student.Get("/:id", h.GetByID)
}

func (h *TopicVaultHandler) GetAll(c fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.TopicVaultFilter{
		Subject:  c.Query("subject"),
		Topic:    c.Query("topic"),
		Subtopic: c.Query("subtopic"),
		Search:   c.Query("search"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	videos, err := h.topicVaultService.GetAll(ctx, filter, page, limit)
	if err != nil {
		return respondError(c, err, "retrieve topic vault videos")
	}
	return utils.SuccessResponse(c, "", videos)
}

func (h *TopicVaultHandler) GetGrouped(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	groups, err := h.topicVaultService.GetGrouped(ctx, c.Query("subject"))
	if err != nil {
		return respondError(c, err, "group topic vault videos")
	}
	return utils.SuccessResponse(c, "", groups)
}

func (h *TopicVaultHandler) GetByID(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	video, err := h.topicVaultService.GetByID(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve topic vault video")
	}
	return utils.SuccessResponse(c, "", video)
}

func (h *TopicVaultHandler) Create(c fiber.Ctx) error {
	var req models.CreateTopicVaultRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	video, err := h.topicVaultService.Create(ctx, &req)
	if err != nil {
		return respondError(c, err, "create topic vault video")
	}
	return utils.CreatedResponse(c, "Video added successfully", video)
}

func (h *TopicVaultHandler) Update(c fiber.Ctx) error {
	var req models.UpdateTopicVaultRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	video, err := h.topicVaultService.Update(ctx, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, "update topic vault video")
	}
	return utils.SuccessResponse(c, "Video updated successfully", video)
}

func (h *TopicVaultHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.topicVaultService.Delete(ctx, c.Params("id")); err != nil {
		return respondError(c, err, "delete topic vault video")
	}
	return utils.SuccessResponse(c, "Video deleted successfully", nil)
}

func (h *TopicVaultHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.topicVaultService.GetStats(ctx)
	if err != nil {
		return respondError(c, err, "retrieve topic vault stats")
	}
	return utils.SuccessResponse(c, "", stats)
}
