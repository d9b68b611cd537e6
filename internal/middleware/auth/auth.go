package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	authsvc "github.com/girijasivakumar242/IARS/internal/auth"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

const teacherIDKey = "teacherID"

// Middleware authenticates the Bearer token and stashes the teacher id in
// request locals. Every student route sits behind it.
func Middleware(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not authorized, no token",
			})
		}

		teacherID, err := svc.ValidateToken(c.Context(), token)
		if err != nil {
			logger.Debug("Token rejected", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not authorized, token failed",
			})
		}

		c.Locals(teacherIDKey, teacherID)
		return c.Next()
	}
}

// TeacherID returns the authenticated teacher id set by Middleware.
func TeacherID(c *fiber.Ctx) string {
	id, _ := c.Locals(teacherIDKey).(string)
	return id
}

func extractBearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
