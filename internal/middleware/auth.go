package middleware

import (
	"hst-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth rejects requests without a signed-in staff user.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user (nil if not logged in).
func GetUser(c *fiber.Ctx) map[string]interface{} {
	u, _ := c.Locals(userLocal).(map[string]interface{})
	return u
}

// Actor identifies the staff member behind a request for audit records.
func Actor(c *fiber.Ctx) string {
	u := GetUser(c)
	if u == nil {
		return ""
	}
	if id, _ := u["user_id"].(string); id != "" {
		return id
	}
	email, _ := u["email"].(string)
	return email
}
