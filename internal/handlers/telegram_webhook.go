package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherbot/internal/server"
)

// maxUpdateSize caps the webhook body; Telegram updates are a few KB.
const maxUpdateSize = 1 << 20

// TelegramWebhook answers every delivery with 200 and an empty body so
// Telegram never redelivers. Failures are only logged.
func (h *Handler) TelegramWebhook(c *gin.Context) {
	log := h.log.With(zap.String("request_id", server.RequestID(c)))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpdateSize))
	if err != nil {
		log.Warn("read webhook body", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	if h.updates == nil {
		log.Error("no update processor configured")
		c.Status(http.StatusOK)
		return
	}

	if err := h.updates.Process(c.Request.Context(), payload); err != nil {
		log.Error("process update", zap.Error(err))
	}
	c.Status(http.StatusOK)
}
