package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/handlers"
	"github.com/Ananth-NQI/botfleet-backend/internal/middleware"
	"github.com/Ananth-NQI/botfleet-backend/internal/services"
)

// Version is reported by the root and health endpoints
const Version = "1.0.0"

// SetupRoutes configures all API routes. pingDB reports database
// reachability on /api/health and may be nil.
func SetupRoutes(app *fiber.App, manager *services.BotManager, apiKey string, pingDB func() error, logger zerolog.Logger) {
	health := handlers.NewHealthHandler(Version, manager, pingDB)
	pairing := handlers.NewPairingHandler(manager, logger)
	bots := handlers.NewBotHandler(manager, logger)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "BotFleet session manager",
			"version": Version,
			"endpoints": fiber.Map{
				"health":  "/api/health",
				"stats":   "/api/stats",
				"connect": "/api/connect",
				"confirm": "/api/confirm-session",
				"bot":     "/bot/:userId",
				"metrics": "/metrics",
			},
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", health.Check)
	api.Get("/stats", health.Stats)

	// Pairing
	api.Post("/connect", middleware.RequireAPIKey(apiKey), pairing.Connect)
	api.Post("/confirm-session", middleware.RequireAPIKey(apiKey), pairing.Confirm)

	// Per-user bot routes
	bot := app.Group("/bot/:userId", middleware.RequireAPIKey(apiKey))
	bot.Get("/status", bots.Status)
	bot.Get("/events", bots.Events)
	bot.Post("/disconnect", bots.Disconnect)
	bot.Post("/restart", bots.Restart)
	bot.Post("/send-message", bots.SendMessage)
}
