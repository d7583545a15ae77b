package middleware

import (
	"stocksim-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth rejects requests without a logged-in session with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user, or nil when not logged in.
func GetUser(c *fiber.Ctx) *SessionUser {
	u, _ := c.Locals(localSessionUser).(*SessionUser)
	return u
}
