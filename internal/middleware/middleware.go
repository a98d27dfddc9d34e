package middleware

import "proacademics-service/internal/models"

const (
	// Locals keys
	ClaimsKey = "claims"

	// Roles allowed on each route group
	AdminRole   = models.RoleAdmin
	StudentRole = models.RoleStudent
)
