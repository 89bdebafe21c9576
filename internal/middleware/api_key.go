package middleware

import (
	"crypto/hmac"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the shared secret for protected routes
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key header does not match key.
// An empty key disables the check.
func RequireAPIKey(key string) fiber.Handler {
	expected := []byte(key)
	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Next()
		}

		provided := c.Get(APIKeyHeader)
		if provided == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing API key",
			})
		}
		if !hmac.Equal([]byte(provided), expected) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid API key",
			})
		}
		return c.Next()
	}
}
