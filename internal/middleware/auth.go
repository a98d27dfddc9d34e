package middleware

import (
	"crypto/subtle"
	"log"
	"proacademics-service/internal/models"
	"proacademics-service/pkg/utils"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	Parse(token string) (*models.Claims, error)
}

func bearerToken(c fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Authenticate requires a valid JWT bearer token and stores its claims in Locals.
func Authenticate(tokens TokenParser) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Authorization token required")
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			return utils.UnauthorizedResponse(c, "Invalid or expired token")
		}
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return utils.UnauthorizedResponse(c, "Authorization token required")
		}
		if !slices.Contains(roles, claims.Role) {
			log.Println("Role check failed from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())
			return utils.ForbiddenResponse(c, "Insufficient permissions")
		}
		return c.Next()
	}
}

// Claims returns the authenticated caller, nil outside an Authenticate group.
func Claims(c fiber.Ctx) *models.Claims {
	claims, _ := c.Locals(ClaimsKey).(*models.Claims)
	return claims
}

// CronSecret guards the maintenance endpoints with a shared bearer secret.
func CronSecret(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if secret == "" {
			return utils.ServiceUnavailableResponse(c, "Cron endpoints are not configured")
		}
		token := bearerToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return utils.UnauthorizedResponse(c, "Invalid cron secret")
		}
		return c.Next()
	}
}
