package handlers

import (
	"errors"
	"log"
	"proacademics-service/internal/importer"
	"proacademics-service/internal/middleware"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

const requestTimeout = 10 * time.Second

// respondError logs err and maps it to the status code of the failure it wraps.
func respondError(c fiber.Ctx, err error, action string) error {
	log.Printf("Failed to %s: %v", action, err)

	switch {
	case errors.Is(err, services.ErrValidation):
		return utils.ValidationErrorResponse(c, err)
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrNoChanges),
		errors.Is(err, services.ErrScoreOutOfRange),
		errors.Is(err, services.ErrInvalidFile),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrMissingHeader),
		errors.Is(err, importer.ErrUnknownKind):
		return utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, services.ErrInactiveAccount):
		return utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrQuestionNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrEmailExists),
		errors.Is(err, services.ErrHomeworkClosed),
		errors.Is(err, services.ErrQuestionCompleted):
		return utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrNotConfigured):
		return utils.ServiceUnavailableResponse(c, err.Error())
	}
	return utils.InternalErrorResponse(c, "Failed to "+action)
}

func invalidBody(c fiber.Ctx, err error) error {
	log.Printf("Invalid request body from %s: %v", c.IP(), err)
	return utils.BadRequestResponse(c, "Invalid request body")
}

// pagination reads ?page and ?limit; the services clamp the values.
func pagination(c fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	return page, limit
}

func studentID(c fiber.Ctx) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func parseBoolQuery(c fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
