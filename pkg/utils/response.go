package utils

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func SuccessResponse(c fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func CreatedResponse(c fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// ValidationErrorResponse answers 400 with per-field details when err is a *ValidationError.
func ValidationErrorResponse(c fiber.Ctx, err error) error {
	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		response.Details = verr.Fields
	}

	return c.Status(fiber.StatusBadRequest).JSON(response)
}

func BadRequestResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusBadRequest, message)
}

func UnauthorizedResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusUnauthorized, message)
}

func ForbiddenResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusForbidden, message)
}

func NotFoundResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusNotFound, message)
}

func ConflictResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusConflict, message)
}

func InternalErrorResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusInternalServerError, message)
}

func ServiceUnavailableResponse(c fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusServiceUnavailable, message)
}
