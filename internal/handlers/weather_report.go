package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherbot/internal/bot"
	"weatherbot/internal/server"
	"weatherbot/internal/weather"
)

type WeatherReportRequest struct {
	Place string `json:"place" binding:"required"`
}

type WeatherReportResponse struct {
	Place   string          `json:"place"`
	Weather weather.Summary `json:"weather"`
	Report  string          `json:"report"`
}

// WeatherReport returns the same report the bot would send for a text message.
func (h *Handler) WeatherReport(c *gin.Context) {
	var req WeatherReportRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Place) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "place is required"})
		return
	}

	summary, err := h.weatherService.GetWeather(c.Request.Context(), req.Place)
	if errors.Is(err, weather.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found", "place": req.Place})
		return
	}
	if err != nil {
		h.log.Error("weather lookup failed",
			zap.String("request_id", server.RequestID(c)),
			zap.String("place", req.Place),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get weather"})
		return
	}

	c.JSON(http.StatusOK, WeatherReportResponse{
		Place:   req.Place,
		Weather: summary,
		Report:  bot.FormatTextReport(summary, h.zoneLabel),
	})
}
