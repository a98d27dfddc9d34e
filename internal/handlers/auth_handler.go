package handlers

import (
	"context"
	"log"
	"proacademics-service/internal/middleware"
	"proacademics-service/internal/models"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counter for login attempts by outcome
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status", "role"},
	)

	loginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "academy_login_duration_seconds",
			Help:    "Time spent processing login requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

type AuthHandler struct {
	userService  *services.UserService
	tokenService *services.TokenService
}

func NewAuthHandler(userService *services.UserService, tokenService *services.TokenService) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokenService: tokenService,
	}
}

func (h *AuthHandler) RegisterRoutes(r *Routes) {
	auth := r.Public.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Get("/me", r.Auth, h.Me)
}

func (h *AuthHandler) Login(c fiber.Ctx) error {
	start := time.Now()
	var req models.LoginRequest
	if err := c.Bind().Body(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	user, err := h.userService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		loginAttempts.WithLabelValues("failure", "").Inc()
		loginDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		return respondError(c, err, "login")
	}

	token, expiresAt, err := h.tokenService.Generate(user)
	if err != nil {
		loginAttempts.WithLabelValues("failure", string(user.Role)).Inc()
		return respondError(c, err, "generate token")
	}

	loginAttempts.WithLabelValues("success", string(user.Role)).Inc()
	loginDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	log.Printf("User %s logged in", user.ID)

	return utils.SuccessResponse(c, "Login successful", models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *AuthHandler) Me(c fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return utils.UnauthorizedResponse(c, "Authorization token required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	user, err := h.userService.GetByID(ctx, claims.UserID)
	if err != nil {
		return respondError(c, err, "get current user")
	}
	return utils.SuccessResponse(c, "", user)
}
