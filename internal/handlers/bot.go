package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/services"
)

// BotHandler exposes per-user bot operations
type BotHandler struct {
	manager   *services.BotManager
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewBotHandler creates a new bot handler
func NewBotHandler(manager *services.BotManager, logger zerolog.Logger) *BotHandler {
	return &BotHandler{
		manager:   manager,
		heartbeat: 15 * time.Second,
		logger:    logger.With().Str("handler", "bot").Logger(),
	}
}

// SendMessageRequest is the body of POST /bot/:userId/send-message
type SendMessageRequest struct {
	JID     string `json:"jid"`
	Message string `json:"message"`
}

// Status returns the session status of a user
func (h *BotHandler) Status(c *fiber.Ctx) error {
	status := h.manager.GetStatus(c.Params("userId"))
	return c.JSON(fiber.Map{
		"success": true,
		"status":  status,
	})
}

// Disconnect stops a user's bot and forgets its credentials
func (h *BotHandler) Disconnect(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := h.manager.Disconnect(c.UserContext(), userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Bot disconnected",
	})
}

// Restart recreates a user's bot with its stored credentials
func (h *BotHandler) Restart(c *fiber.Ctx) error {
	if err := h.manager.Restart(c.Params("userId")); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Bot restarting",
	})
}

// SendMessage sends a text message through a user's open bot
func (h *BotHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.JID == "" || req.Message == "" {
		return badRequest(c, "JID and message are required")
	}

	if err := h.manager.SendMessage(c.UserContext(), c.Params("userId"), req.JID, req.Message); err != nil {
		h.logger.Warn().Err(err).Str("user_id", c.Params("userId")).Msg("send message failed")
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message sent",
	})
}
