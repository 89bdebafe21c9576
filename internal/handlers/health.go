package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/botfleet-backend/internal/services"
)

// HealthHandler handles health and fleet stats requests
type HealthHandler struct {
	Version string
	manager *services.BotManager
	// pingDB is nil when credentials are kept in memory
	pingDB  func() error
	started time.Time
}

// NewHealthHandler creates a new health handler. pingDB may be nil.
func NewHealthHandler(version string, manager *services.BotManager, pingDB func() error) *HealthHandler {
	return &HealthHandler{
		Version: version,
		manager: manager,
		pingDB:  pingDB,
		started: time.Now(),
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := fiber.Map{
		"status":  "OK",
		"service": "BotFleet Backend",
		"version": h.Version,
		"uptime":  int64(time.Since(h.started).Seconds()),
	}

	statusCode := fiber.StatusOK
	if h.pingDB != nil {
		dbStatus := "connected"
		if err := h.pingDB(); err != nil {
			dbStatus = "error: " + err.Error()
			response["status"] = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
		}
		response["database"] = dbStatus
	}
	return c.Status(statusCode).JSON(response)
}

// Stats returns registry occupancy across all users
func (h *HealthHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":          true,
		"stats":            h.manager.GetGlobalStats(),
		"pending_pairings": h.manager.PendingPairings(),
	})
}
