package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

// callerSession returns the session attached by the bearer middleware. The
// request context is checked first; Locals covers handlers whose user context
// was replaced after authentication.
func callerSession(c *fiber.Ctx) (*domain.Session, error) {
	if session, ok := auth.SessionFromContext(c.UserContext()); ok {
		return session, nil
	}
	if session, ok := auth.SessionFromFiber(c); ok {
		return session, nil
	}
	return nil, apperrors.NewUnauthorized("not authorized, no token")
}
