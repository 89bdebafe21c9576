package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/Ananth-NQI/botfleet-backend/internal/services"
)

// Events streams a user's lifecycle and message events as Server-Sent
// Events until the client goes away
func (h *BotHandler) Events(c *fiber.Ctx) error {
	userID := c.Params("userId")
	sub := h.manager.Subscribe(userID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With().Str("user_id", userID).Logger()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		logger.Debug().Msg("event stream opened")
		err := streamEvents(w, sub, h.heartbeat)
		logger.Debug().Err(err).Msg("event stream closed")
	}))
	return nil
}

// streamEvents writes events from sub to w until the subscription ends or
// a write fails. A comment line is sent every heartbeat to keep proxies
// from timing out idle streams.
func streamEvents(w *bufio.Writer, sub *services.Subscription, heartbeat time.Duration) error {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}
