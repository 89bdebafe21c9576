package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/services"
)

// PairingHandler issues pairing codes and confirms them into bot sessions
type PairingHandler struct {
	manager *services.BotManager
	logger  zerolog.Logger
}

// NewPairingHandler creates a new pairing handler
func NewPairingHandler(manager *services.BotManager, logger zerolog.Logger) *PairingHandler {
	return &PairingHandler{
		manager: manager,
		logger:  logger.With().Str("handler", "pairing").Logger(),
	}
}

// ConnectRequest is the body of POST /api/connect
type ConnectRequest struct {
	Phone string `json:"phone"`
}

// ConfirmRequest is the body of POST /api/confirm-session
type ConfirmRequest struct {
	UserID string `json:"user_id"`
}

// Connect requests a pairing code for a phone number
func (h *PairingHandler) Connect(c *fiber.Ctx) error {
	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return badRequest(c, "Phone number is required")
	}

	result, err := h.manager.StartPairing(c.UserContext(), req.Phone)
	if err != nil {
		return fail(c, err)
	}

	h.logger.Info().Str("ephemeral_id", result.EphemeralID).Msg("pairing code issued")
	return c.JSON(fiber.Map{
		"success":      true,
		"user_id":      result.EphemeralID,
		"pairing_code": result.PairingCode,
		"expires_at":   result.ExpiresAt,
		"message":      "Enter this code in WhatsApp > Linked devices > Link with phone number",
	})
}

// Confirm promotes a pending pairing request into a running bot
func (h *PairingHandler) Confirm(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "User ID is required")
	}

	userID, err := h.manager.ConfirmPairing(req.UserID)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user_id": userID,
		"message": "Bot session created",
	})
}
