package handlers

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tutorTimeout = 90 * time.Second

// Counter for tutor requests, split by whether the model answered or the canned fallback was used
var tutorRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "academy_tutor_requests_total",
		Help: "Total number of AI tutor requests",
	},
	[]string{"kind", "outcome"},
)

func tutorOutcome(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "model"
}

type AIHandler struct {
	tutorService *services.TutorService
}

func NewAIHandler(tutorService *services.TutorService) *AIHandler {
	return &AIHandler{tutorService: tutorService}
}

func (h *AIHandler) RegisterRoutes(r *Routes) {
	ai := r.Student.Group("/ai")
	ai.Post("/chat", h.Chat)
	ai.Get("/sessions", h.ListSessions)
	ai.Get("/sessions/:id", h.GetSession)
	ai.Delete("/sessions/:id", h.DeleteSession)
	ai.Post("/practice", h.Practice)
	ai.Get("/study-tip", h.StudyTip)
}

func (h *AIHandler) Chat(c fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tutorTimeout)
	defer cancel()

	reply, err := h.tutorService.Chat(ctx, studentID(c), &req)
	if err != nil {
		tutorRequests.WithLabelValues("chat", "error").Inc()
		return respondError(c, err, "answer tutor message")
	}
	tutorRequests.WithLabelValues("chat", tutorOutcome(reply.Fallback)).Inc()
	return utils.SuccessResponse(c, "", reply)
}

func (h *AIHandler) ListSessions(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sessions, err := h.tutorService.ListSessions(ctx, studentID(c))
	if err != nil {
		return respondError(c, err, "retrieve chat sessions")
	}
	return utils.SuccessResponse(c, "", sessions)
}

func (h *AIHandler) GetSession(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	session, err := h.tutorService.GetSession(ctx, studentID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "retrieve chat session")
	}
	return utils.SuccessResponse(c, "", session)
}

func (h *AIHandler) DeleteSession(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.tutorService.DeleteSession(ctx, studentID(c), c.Params("id")); err != nil {
		return respondError(c, err, "delete chat session")
	}
	return utils.SuccessResponse(c, "Chat session deleted", nil)
}

func (h *AIHandler) Practice(c fiber.Ctx) error {
	var req models.PracticeRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tutorTimeout)
	defer cancel()

	set, err := h.tutorService.PracticeQuestions(ctx, &req)
	if err != nil {
		tutorRequests.WithLabelValues("practice", "error").Inc()
		return respondError(c, err, "generate practice questions")
	}
	tutorRequests.WithLabelValues("practice", tutorOutcome(set.Fallback)).Inc()
	return utils.SuccessResponse(c, "", set)
}

func (h *AIHandler) StudyTip(c fiber.Ctx) error {
	tutorRequests.WithLabelValues("tip", "fallback").Inc()
	return utils.SuccessResponse(c, "", fiber.Map{"tip": h.tutorService.StudyTip()})
}
