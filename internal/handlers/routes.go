package handlers

import (
	"proacademics-service/internal/middleware"

	"github.com/gofiber/fiber/v3"
)

// Routes holds the route groups every handler registers on. Each guarded group is created
// once so its middleware runs once per request.
type Routes struct {
	Public  fiber.Router
	Auth    fiber.Handler
	Admin   fiber.Router
	Student fiber.Router
	Cron    fiber.Router
}

func NewRoutes(app *fiber.App, tokens middleware.TokenParser, cronSecret string) *Routes {
	auth := middleware.Authenticate(tokens)
	return &Routes{
		Public:  app.Group("/api"),
		Auth:    auth,
		Admin:   app.Group("/api/admin", auth, middleware.RequireRole(middleware.AdminRole)),
		Student: app.Group("/api/student", auth, middleware.RequireRole(middleware.StudentRole)),
		Cron:    app.Group("/api/cron", middleware.CronSecret(cronSecret)),
	}
}
