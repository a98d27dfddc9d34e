package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"proacademics-service/internal/models"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]*models.Claims

func (s staticTokens) Parse(token string) (*models.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

func newGuardedApp() *fiber.App {
	tokens := staticTokens{
		"admin":   {UserID: "a1", Role: models.RoleAdmin},
		"student": {UserID: "s1", Role: models.RoleStudent},
	}

	app := fiber.New()
	app.Use(Metrics())
	admin := app.Group("/admin", Authenticate(tokens), RequireRole(AdminRole))
	admin.Get("/whoami", func(c fiber.Ctx) error {
		return c.SendString(Claims(c).UserID)
	})
	cron := app.Group("/cron", CronSecret("shh"))
	cron.Post("/run", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/boom", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "boom")
	})
	return app
}

func statusOf(t *testing.T, app *fiber.App, method, path, authorization string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	app := newGuardedApp()

	tests := []struct {
		name          string
		authorization string
		status        int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer student", http.StatusForbidden},
		{"admin", "Bearer admin", http.StatusOK},
		{"scheme is case insensitive", "bearer admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusOf(t, app, http.MethodGet, "/admin/whoami", tt.authorization))
		})
	}
}

func TestCronSecret(t *testing.T) {
	app := newGuardedApp()
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, app, http.MethodPost, "/cron/run", ""))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, app, http.MethodPost, "/cron/run", "Bearer shhh"))
	assert.Equal(t, http.StatusNoContent, statusOf(t, app, http.MethodPost, "/cron/run", "Bearer shh"))

	disabled := fiber.New()
	disabled.Post("/run", CronSecret(""), func(c fiber.Ctx) error { return nil })
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, disabled, http.MethodPost, "/run", "Bearer anything"))
}

func TestMetricsRecordsRouteAndStatus(t *testing.T) {
	app := newGuardedApp()
	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/boom", "418"))

	assert.Equal(t, http.StatusTeapot, statusOf(t, app, http.MethodGet, "/boom", ""))

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/boom", "418"))
	assert.Equal(t, before+1, after)
}
