package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
)

// RequestMetrics records the count and latency of every request by route
// pattern, so path parameters do not explode label cardinality
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		observability.RecordHTTPRequest(c.Method(), path, status, time.Since(start))
		return err
	}
}
